// Package lint runs static checks over JavaScript source and normalizes the
// resulting findings.
//
// ESLint shells out to the eslint CLI with a fixed rule set and no config
// file lookup, reading source from stdin and decoding the JSON formatter
// output. Checker wraps any Linter so that failures degrade to an empty
// result. Normalize drops findings without a rule id and removes duplicates
// keyed by rule, line, column and message.
package lint

// Package source loads the JavaScript files to analyze: a single path,
// stdin, every git-tracked file, or the files staged in the index.
// Git is invoked as a subprocess. Candidate paths are filtered by
// include/exclude globs and by file extension.
package source

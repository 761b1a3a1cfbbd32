// Package cli wires together the Cobra command tree for the nodereview binary.
//
// It defines the root command and all subcommands (review, check, analyze,
// serve, config, models, cache, hook, version), binds flags, reads
// configuration, sets up logging, and returns deterministic exit codes for
// CI gating.
package cli

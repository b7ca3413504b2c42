// Package preflight provides readiness checks for the filesystem paths and
// external services storyreel depends on.
//
// The daemon runs RunAll at startup and logs failures as warnings; the CLI
// "storyreel check" command renders the same results as a table.
package preflight

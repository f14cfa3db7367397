// Package cmd implements the command-line interface for flushfinder.
//
// This package provides the following commands:
//   - report: Write the all-buildings restroom report (default)
//   - rooms: Write the restrooms of one building as JSON
//   - serve: Serve buildings, restrooms and reviews from the SQLite export
//   - version: Display version information
//
// Settings come from built-in defaults, an optional YAML file (--config),
// a .env file and FLUSHFINDER_* environment variables, in increasing
// precedence. Command-line flags override all of them.
package cmd

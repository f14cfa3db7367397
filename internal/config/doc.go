// Package config loads flushfinder's runtime configuration.
//
// Values are resolved in this order, later sources overriding earlier ones:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file passed with --config
//  3. a .env file in the working directory, if present
//  4. FLUSHFINDER_* environment variables
//
// Command-line flags are applied on top by the cmd package. Credentials are
// never compiled in; Validate rejects a configuration without them.
package config

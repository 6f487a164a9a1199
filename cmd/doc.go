// Package cmd implements the command-line interface for the strata
// storage layer. It provides a hierarchical command structure for
// inspecting backends and working with stored values.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (get, set, del, query, export, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See strata -help for a list of all commands.
package cmd

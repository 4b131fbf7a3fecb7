// Package cmd implements the command-line interface of typedkv. It provides
// a hierarchical command structure for running a storage peer and for
// working with its entity stores as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a storage peer (engine, shards, transport, metrics)
//   - peer: Sets, prints and clears the cached peer address of every store
//   - group, profile, notification: Remote operations on the entity stores
//     (size, get, list, filter, create, update, remove), printed as JSON
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See tkv -help for a list of all commands.
package cmd

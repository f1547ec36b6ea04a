// Package cli defines the Cobra command tree for the siteext CLI. Each file
// in this package registers one top-level command (search, install, list,
// etc.) with the root command. Command implementations delegate to the
// extension manager for business logic and only handle flag parsing, I/O
// formatting, and per-extension locking.
package cli

// Package extension is the entry point for managing site extensions. A
// Manager combines the remote feed, the local store and the installer into
// list, show, install and uninstall operations, validates extension ids
// before they reach the filesystem and works out whether an installed
// extension is still the latest published version.
package extension

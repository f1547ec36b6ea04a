// Package store reads the extensions that are installed under the local
// extensions root.
//
// Each immediate subdirectory of the root is one installed extension. Its
// metadata comes from the package archive kept inside that directory, and
// its installation time is the directory's modification time. Directories
// whose name starts with '.' hold bookkeeping (locks, staging) and are
// never reported.
//
// Reading every archive on each listing is wasteful once a machine has a
// few dozen extensions, so the store keeps a small JSON index beside the
// root keyed by directory modification time. The index is advisory: a
// missing, corrupt or stale index only costs a re-read.
package store

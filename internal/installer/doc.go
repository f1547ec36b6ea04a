// Package installer writes one extension package to its installation
// directory and removes it again.
//
// An install replaces the target directory wholesale: the old tree is
// deleted, the package's content/ entries are extracted, an
// applicationHost.xdt is generated when the package does not ship one, and
// the archive itself is kept beside the content so the local store can read
// its metadata later. Any failure deletes the target, so a directory is
// either fully installed or absent.
package installer

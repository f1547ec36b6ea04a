// Package feed is a read-only client for the remote extension feed.
//
// The feed speaks a NuGet v3 shaped JSON protocol:
//
//	GET {feed}/query?q=&prerelease=&skip=&take=     search, paged
//	GET {feed}/package/{id}/index.json              published versions
//	GET {feed}/package/{id}/{ver}/{id}.{ver}.nupkg  package archive
//
// Ids and versions are lowercased in package URLs. A 404 is reported as
// not-found (a nil result with a nil error); every other failure wraps
// ErrCatalogUnavailable. Search entries are checked against an embedded
// JSON schema and malformed ones are dropped with a warning.
package feed

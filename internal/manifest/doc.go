// Package manifest reads extension package archives (.nupkg zip files) and
// the .nuspec metadata inside them. The same archive is persisted next to an
// installation so the local store can rediscover it without the remote feed.
package manifest

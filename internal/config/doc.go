// Package config manages user-level settings stored at ~/.siteext/config.yaml.
// Values come from, in order of precedence, flags bound by the CLI,
// SITEEXT_* environment variables, the config file and built-in defaults.
// Setting SITEEXT_HOME relocates the whole ~/.siteext directory.
package config

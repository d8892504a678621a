// Package config defines the updater settings and loads them from defaults,
// an optional YAML file and EMBY_UPDATER_* environment variables.
//
// Save and Marshal write the same YAML layout back, which is how the
// `config` subcommand shows or persists the effective settings.
package config

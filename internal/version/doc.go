// Package version exposes build metadata of the updater binary itself.
//
// Version, Commit and BuildTime are injected via ldflags. This package knows
// nothing about Emby versions; those live in internal/domain/release.
package version

// Package release contains the pure decision logic of the updater.
//
// It parses dotted numeric versions and orders them, describes releases and
// assets as published by the feed, picks the newest beta artifact and decides
// whether the installed package has to be replaced. Nothing here performs I/O.
package release

// Package updater keeps the installed Emby Server package on the newest beta.
//
// A run checks privileges and the distribution, probes the installed version,
// locates the newest pre-release artifact in the release feed, compares both
// versions and installs the artifact when it is newer. Every failure stops the
// run and is returned as a classified *Failure; nothing is retried. In
// simulation mode the installer performs no I/O while the control flow stays
// the same.
package updater

// Package dpkg talks to the Debian package manager.
//
// It reads the installed version of a package from `dpkg -l` output and
// installs a local .deb with `dpkg -i`. Commands run through a replaceable
// CommandFunc so callers can be tested without a Debian host.
package dpkg

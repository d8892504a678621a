// Package host answers questions about the machine the updater runs on:
// whether the process is privileged and which Linux distribution it is.
package host

package dpkg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotInstalled is returned when the listing has no installed row for the package.
var ErrNotInstalled = errors.New("package is not installed")

var errEmptyPackageName = errors.New("package name must be provided")

// ParseListing extracts the version of name from `dpkg -l` output.
//
// A row has the form `<status> <name>[:<arch>] <version> ...`. Only rows whose
// status says the package is installed ("ii", "hi", ...) count; a row left by
// a removed package ("rc", "un") means the package is not installed.
func ParseListing(output []byte, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errEmptyPackageName
	}

	row := regexp.MustCompile(`^(\S+)\s+` + regexp.QuoteMeta(name) + `(?::\S+)?\s+(\S+)`)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		match := row.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		status, version := match[1], match[2]
		if !isInstalledStatus(status) {
			return "", fmt.Errorf("%s (status %s): %w", name, status, ErrNotInstalled)
		}

		return version, nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read package listing: %w", err)
	}

	return "", fmt.Errorf("%s: %w", name, ErrNotInstalled)
}

// isInstalledStatus checks the second status letter, which dpkg sets to 'i' for installed packages.
func isInstalledStatus(status string) bool {
	return len(status) >= 2 && status[1] == 'i'
}

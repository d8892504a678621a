package updater

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// maxCommLength is the length Linux truncates process names to in /proc/<pid>/stat.
const maxCommLength = 15

var errPackageManagerBusy = errors.New("package manager busy")

// busyProcessNames are executables that hold the dpkg lock or race with another update.
// Linux truncates process names to 15 characters, hence "unattended-upgr".
//
//nolint:gochecknoglobals // Static lookup table.
var busyProcessNames = []string{"dpkg", "apt", "apt-get", "aptitude", "unattended-upgr"}

// ProcessLister returns the running processes.
type ProcessLister func() ([]ps.Process, error)

// Guard refuses to install while another package operation or updater instance runs.
type Guard struct {
	// list enumerates processes; ps.Processes by default.
	list ProcessLister
	// selfPID is excluded from the scan.
	selfPID int
	// names holds the executables that make the guard refuse.
	names map[string]struct{}
}

// NewGuard creates a guard that also treats other instances of selfName as busy.
// A nil lister means ps.Processes.
func NewGuard(selfName string, list ProcessLister) *Guard {
	if list == nil {
		list = ps.Processes
	}

	names := sliceToSet(busyProcessNames)
	if selfName != "" {
		names[commName(filepath.Base(selfName))] = struct{}{}
	}

	return &Guard{
		list:    list,
		selfPID: os.Getpid(),
		names:   names,
	}
}

// Check returns an error naming the first conflicting process.
func (g *Guard) Check() error {
	processes, err := g.list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, p := range processes {
		if p.Pid() == g.selfPID {
			continue
		}

		if _, found := g.names[p.Executable()]; found {
			return fmt.Errorf("%w: %s is running (pid %d)", errPackageManagerBusy, p.Executable(), p.Pid())
		}
	}

	return nil
}

// commName truncates an executable name the way the kernel does for process listings.
func commName(name string) string {
	if len(name) > maxCommLength {
		return name[:maxCommLength]
	}

	return name
}

// sliceToSet converts a slice to a set for quick lookups.
func sliceToSet[T comparable](elements []T) map[T]struct{} {
	result := make(map[T]struct{}, len(elements))
	for _, value := range elements {
		result[value] = struct{}{}
	}

	return result
}

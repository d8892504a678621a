package release

// Decision says what to do with the installed package.
type Decision int

const (
	// DecisionUpToDate means the installed version is the latest beta or newer.
	DecisionUpToDate Decision = iota
	// DecisionUpdateAvailable means a newer beta should be installed.
	DecisionUpdateAvailable
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == DecisionUpdateAvailable {
		return "update_available"
	}

	return "up_to_date"
}

// Decide compares the installed version with the latest beta.
// Only a strictly newer beta warrants an install.
func Decide(installed, latest Version) Decision {
	if Compare(installed, latest) == Less {
		return DecisionUpdateAvailable
	}

	return DecisionUpToDate
}

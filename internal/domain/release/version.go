package release

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedVersion is returned when a version string has a non-numeric segment.
var ErrMalformedVersion = errors.New("malformed version")

// Ordering is the result of comparing two versions.
type Ordering int

const (
	// Less means the left version is older.
	Less Ordering = -1
	// Equal means both versions denote the same release.
	Equal Ordering = 0
	// Greater means the left version is newer.
	Greater Ordering = 1
)

// String implements fmt.Stringer.
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// Version is a dotted sequence of non-negative integers such as 4.8.0.56.
// The zero value is an empty version that compares equal to 0.
type Version struct {
	raw      string
	segments []uint64
}

// ParseVersion splits s on dots and parses every segment as a decimal integer.
// A single leading "v" is accepted because release tags sometimes carry one.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if trimmed == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrMalformedVersion)
	}

	parts := strings.Split(trimmed, ".")
	segments := make([]uint64, 0, len(parts))

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: segment %d is %q", ErrMalformedVersion, s, i+1, part)
		}

		segments = append(segments, n)
	}

	return Version{
		raw:      trimmed,
		segments: segments,
	}, nil
}

// MustParseVersion is ParseVersion for constants known to be valid. It panics otherwise.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// Compare orders a and b segment by segment as integers.
// The shorter version is padded with zeros, so 4.7 equals 4.7.0.0 and is older than 4.7.0.1.
func Compare(a, b Version) Ordering {
	n := max(len(a.segments), len(b.segments))

	for i := range n {
		x, y := a.segment(i), b.segment(i)

		switch {
		case x < y:
			return Less
		case x > y:
			return Greater
		}
	}

	return Equal
}

// Less reports whether v is older than other.
func (v Version) Less(other Version) bool {
	return Compare(v, other) == Less
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return len(v.segments) == 0
}

// Segments returns a copy of the numeric segments.
func (v Version) Segments() []uint64 {
	return append([]uint64(nil), v.segments...)
}

// String returns the version as it was parsed, without a leading "v".
func (v Version) String() string {
	return v.raw
}

func (v Version) segment(i int) uint64 {
	if i < len(v.segments) {
		return v.segments[i]
	}

	return 0
}

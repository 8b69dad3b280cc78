package version

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidFormat is returned when a string is not major.minor.patch[-prerelease][+build]
var ErrInvalidFormat = errors.New("invalid version format")

// Version identifies one revision of a transition definition.
//
// Version is a comparable value type and can be used directly as a map key.
// Ordering only considers the numeric triple; Prerelease and Build are carried
// for display and round-tripping.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// New creates a version from its numeric parts
func New(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a canonical version string
func Parse(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, s, err)
	}
	for _, part := range []uint64{sv.Major(), sv.Minor(), sv.Patch()} {
		if part > math.MaxInt {
			return Version{}, fmt.Errorf("%w: %q: component %d is out of range", ErrInvalidFormat, s, part)
		}
	}

	return Version{
		Major:      int(sv.Major()),
		Minor:      int(sv.Minor()),
		Patch:      int(sv.Patch()),
		Prerelease: sv.Prerelease(),
		Build:      sv.Metadata(),
	}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical major.minor.patch[-prerelease][+build] form
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.Prerelease)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Compare orders versions by (major, minor, patch). Pre-release and build
// metadata are ignored, so 1.0.0-rc.1 and 1.0.0 compare equal.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmpInt(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpInt(v.Minor, other.Minor)
	default:
		return cmpInt(v.Patch, other.Patch)
	}
}

// ComparePrecedence orders versions using full SemVer 2.0 precedence,
// where a pre-release sorts before its release.
func (v Version) ComparePrecedence(other Version) int {
	return v.semver().Compare(other.semver())
}

// Less reports whether v sorts before other
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal reports whether both versions share the same numeric triple
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// IsZero reports whether v is the zero value
func (v Version) IsZero() bool {
	return v == Version{}
}

// IsCompatibleWith is a cheap heuristic: same major and other is not behind
// on the minor line.
func (v Version) IsCompatibleWith(other Version) bool {
	return v.Major == other.Major && other.Minor >= v.Minor
}

// Core returns the version without pre-release and build metadata
func (v Version) Core() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

// MarshalText implements encoding.TextMarshaler
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) semver() *semver.Version {
	return semver.New(uint64(v.Major), uint64(v.Minor), uint64(v.Patch), v.Prerelease, v.Build)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Sort sorts versions ascending. Versions with equal triples keep their
// relative order.
func Sort(vs []Version) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Less(vs[j])
	})
}

// ParseAll parses a list of version strings
func ParseAll(ss []string) ([]Version, error) {
	out := make([]Version, 0, len(ss))
	for _, s := range ss {
		v, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Release describes a published version of a definition
type Release struct {
	Version     Version
	Timestamp   time.Time
	Description string
	Metadata    map[string]string
}

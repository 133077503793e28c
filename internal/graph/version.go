package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionQuery asks the server for the kernel component version.
const versionQuery = "CALL dbms.components() YIELD versions RETURN versions[0] AS version"

// ErrNoVersion is returned when the version probe yields no usable row.
var ErrNoVersion = errors.New("graph store reported no version")

// modernThreshold is the first server line that accepts
// CREATE INDEX IF NOT EXISTS.
var modernThreshold = semver.MustParse("4.0")

// Version is the major.minor version of the graph store.
type Version struct {
	Major uint64
	Minor uint64
	Raw   string
}

// ParseVersion parses the first two numeric dot segments of a server
// version string such as "3.5.12", "5.26.0" or "2025.01.0".
func ParseVersion(raw string) (Version, error) {
	segments := strings.SplitN(strings.TrimSpace(raw), ".", 3)
	if len(segments) < 2 {
		return Version{}, fmt.Errorf("invalid graph store version %q: want major.minor", raw)
	}
	for i := range segments[:2] {
		// calendar versions zero-pad the minor segment
		if trimmed := strings.TrimLeft(segments[i], "0"); trimmed != "" {
			segments[i] = trimmed
		} else {
			segments[i] = "0"
		}
	}

	v, err := semver.NewVersion(segments[0] + "." + segments[1])
	if err != nil {
		return Version{}, fmt.Errorf("invalid graph store version %q: %w", raw, err)
	}
	return Version{Major: v.Major(), Minor: v.Minor(), Raw: raw}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Float returns the version as major.minor, e.g. 3.5.
func (v Version) Float() float64 {
	minor := float64(v.Minor)
	for minor >= 1 {
		minor /= 10
	}
	return float64(v.Major) + minor
}

// Modern reports whether the server understands the 4.x+ dialect.
func (v Version) Modern() bool {
	return !v.semver().LessThan(modernThreshold)
}

func (v Version) semver() *semver.Version {
	return semver.New(v.Major, v.Minor, 0, "", "")
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// DetectVersion probes the server version with a single introspection query.
// Probe and parse failures are returned to the caller.
func DetectVersion(ctx context.Context, s Session) (Version, error) {
	ctx, span := tracer.Start(ctx, "graph.DetectVersion")
	defer span.End()

	recs, err := s.Run(ctx, versionQuery, nil)
	if err != nil {
		return Version{}, fmt.Errorf("failed to query graph store version: %w", err)
	}
	if len(recs) == 0 {
		return Version{}, ErrNoVersion
	}

	raw, ok := recs[0]["version"].(string)
	if !ok {
		return Version{}, fmt.Errorf("%w: unexpected value %v", ErrNoVersion, recs[0]["version"])
	}
	return ParseVersion(raw)
}

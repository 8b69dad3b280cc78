package migration

import (
	"github.com/platinummonkey/lineage/pkg/version"
)

const (
	majorWeight = 100
	minorWeight = 10
	patchWeight = 1

	// oversizedHopDistance is the numeric distance above which a hop is
	// penalized
	oversizedHopDistance = 5
	oversizedHopPenalty  = 5
)

// EdgeCost weighs a hop lexicographically: the most significant changed
// component counts its delta and the lower components count their target
// values. Hops whose numeric distance exceeds five pay five times the
// distance on top.
//
//	1.0.0 -> 1.1.0 = 10
//	1.1.0 -> 2.0.0 = 100
//	1.0.0 -> 1.0.3 = 3
func EdgeCost(from, to version.Version) int {
	var major, minor, patch int
	switch {
	case to.Major > from.Major:
		major = to.Major - from.Major
		minor = to.Minor
		patch = to.Patch
	case to.Major == from.Major && to.Minor > from.Minor:
		minor = to.Minor - from.Minor
		patch = to.Patch
	case to.Major == from.Major && to.Minor == from.Minor && to.Patch > from.Patch:
		patch = to.Patch - from.Patch
	}

	cost := majorWeight*major + minorWeight*minor + patchWeight*patch
	if distance := major + minor + patch; distance > oversizedHopDistance {
		cost += oversizedHopPenalty * distance
	}
	return cost
}

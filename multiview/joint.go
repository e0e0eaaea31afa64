// Package multiview holds one frame's 2D joint candidates across all cameras,
// together with the precomputed part-affinity and epipolar scores the
// reconstruction search consumes.
package multiview

import (
	"github.com/golang/geo/r2"

	"github.com/HYPER-THEORY/MMMocap/spatialmath"
)

// Joint is a single 2D detection candidate for one joint type in one camera.
// ID is unique across the whole frame and keys the pairwise score stores.
// Joints are immutable once their ray has been cast.
type Joint struct {
	ID   int
	UV   r2.Point
	Ray  spatialmath.Ray
	Conf float64
}

// pairKey is the canonical unordered key for a pair of joint IDs, so a score
// set for (a, b) is found for (b, a) as well.
type pairKey struct {
	lo, hi int
}

func newPairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

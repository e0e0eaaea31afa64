// Package spatialmath defines the ray geometry used for cross-view triangulation.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// parallelEpsilon bounds |dirA·dirB| under which two rays are treated as perpendicular
// enough that the skew-line formula degenerates.
const parallelEpsilon = 1e-4

// Ray is a half-line in world coordinates with a unit direction.
type Ray struct {
	Origin    r3.Vector
	Direction r3.Vector
}

// NewRay returns a ray through origin pointing along direction, normalized.
func NewRay(origin, direction r3.Vector) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// RayDistance returns the closest 3D distance between two rays, treated as full lines.
// For nearly perpendicular direction pairs the common-normal formula is replaced with
// the point-to-line distance from one origin to the other ray.
func RayDistance(a, b Ray) float64 {
	if math.Abs(a.Direction.Dot(b.Direction)) < parallelEpsilon {
		return a.Origin.Sub(b.Origin).Cross(a.Direction).Norm()
	}
	normal := a.Direction.Cross(b.Direction).Normalize()
	return math.Abs(a.Origin.Sub(b.Origin).Dot(normal))
}

// MultiRayIntersect fuses N weighted rays into the point of least weighted squared
// distance to all of them. For each ray with unit direction d and weight w it
// accumulates N = w(ddᵀ - I) and solves (ΣN)x = Σ(N·origin).
// Callers must supply at least two non-parallel rays with one weight per ray;
// a singular system is reported as an error rather than a garbage point.
func MultiRayIntersect(rays []Ray, weights []float64) (r3.Vector, error) {
	if len(rays) < 2 {
		return r3.Vector{}, errors.Errorf("need at least 2 rays to intersect, got %d", len(rays))
	}
	if len(weights) != len(rays) {
		return r3.Vector{}, errors.Errorf("got %d weights for %d rays", len(weights), len(rays))
	}
	lhs := mat.NewDense(3, 3, nil)
	rhs := mat.NewVecDense(3, nil)
	for i, ray := range rays {
		d := ray.Direction
		w := weights[i]
		n := [3][3]float64{
			{d.X*d.X - 1, d.X * d.Y, d.X * d.Z},
			{d.Y * d.X, d.Y*d.Y - 1, d.Y * d.Z},
			{d.Z * d.X, d.Z * d.Y, d.Z*d.Z - 1},
		}
		o := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
		for r := 0; r < 3; r++ {
			var no float64
			for c := 0; c < 3; c++ {
				lhs.Set(r, c, lhs.At(r, c)+w*n[r][c])
				no += n[r][c] * o[c]
			}
			rhs.SetVec(r, rhs.AtVec(r)+w*no)
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(lhs, rhs); err != nil {
		return r3.Vector{}, errors.Wrap(err, "ray intersection system is singular")
	}
	return r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, nil
}

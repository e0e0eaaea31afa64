// Package camera models the calibrated pinhole cameras that observe a capture space.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/HYPER-THEORY/MMMocap/spatialmath"
)

// Camera holds one camera's intrinsics and extrinsics together with the derived
// quantities needed to cast pixel rays. All fields are immutable after construction
// and a Camera may be shared read-only across frames.
type Camera struct {
	Name   string
	Width  float64
	Height float64

	k *mat.Dense
	r *mat.Dense
	t r3.Vector

	position r3.Vector
	rtKi     *mat.Dense
}

// NewCamera derives the camera position -Rᵀt and the inverse-ray matrix RᵀK⁻¹
// from a 3x3 intrinsic matrix K and the extrinsic rotation R and translation t.
func NewCamera(name string, k, r *mat.Dense, t r3.Vector) (*Camera, error) {
	if rows, cols := k.Dims(); rows != 3 || cols != 3 {
		return nil, errors.Errorf("camera %q: K must be 3x3, got %dx%d", name, rows, cols)
	}
	if rows, cols := r.Dims(); rows != 3 || cols != 3 {
		return nil, errors.Errorf("camera %q: R must be 3x3, got %dx%d", name, rows, cols)
	}

	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrapf(err, "camera %q: intrinsic matrix is not invertible", name)
	}

	var rt mat.Dense
	rt.CloneFrom(r.T())

	var rtKi mat.Dense
	rtKi.Mul(&rt, &kInv)

	tVec := mat.NewVecDense(3, []float64{t.X, t.Y, t.Z})
	var posVec mat.VecDense
	posVec.MulVec(&rt, tVec)

	return &Camera{
		Name:     name,
		k:        mat.DenseCopyOf(k),
		r:        mat.DenseCopyOf(r),
		t:        t,
		position: r3.Vector{X: -posVec.AtVec(0), Y: -posVec.AtVec(1), Z: -posVec.AtVec(2)},
		rtKi:     &rtKi,
	}, nil
}

// Position returns the camera center in world coordinates.
func (c *Camera) Position() r3.Vector {
	return c.position
}

// Intrinsics returns a copy of the 3x3 intrinsic matrix.
func (c *Camera) Intrinsics() *mat.Dense {
	return mat.DenseCopyOf(c.k)
}

// Rotation returns a copy of the 3x3 extrinsic rotation matrix.
func (c *Camera) Rotation() *mat.Dense {
	return mat.DenseCopyOf(c.r)
}

// Translation returns the extrinsic translation vector.
func (c *Camera) Translation() r3.Vector {
	return c.t
}

// RayThroughPixel casts the world-space ray that projects onto the given pixel.
func (c *Camera) RayThroughPixel(pt r2.Point) spatialmath.Ray {
	uv := mat.NewVecDense(3, []float64{pt.X, pt.Y, 1})
	var dir mat.VecDense
	dir.MulVec(c.rtKi, uv)
	return spatialmath.NewRay(c.position, r3.Vector{
		X: -dir.AtVec(0),
		Y: -dir.AtVec(1),
		Z: -dir.AtVec(2),
	})
}

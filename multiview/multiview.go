package multiview

import (
	"fmt"

	"github.com/HYPER-THEORY/MMMocap/spatialmath"
)

// MultiView is the set of views sharing one timestamp. It owns the epipolar
// consistency scores between same-joint-type candidates across camera pairs.
type MultiView struct {
	Views []*View

	epipolars map[pairKey]float64
}

// NewMultiView returns a frame over the given views.
func NewMultiView(views []*View) *MultiView {
	return &MultiView{
		Views:     views,
		epipolars: map[pairKey]float64{},
	}
}

// NumJointTypes returns the number of joint types tracked per view.
func (mv *MultiView) NumJointTypes() int {
	if len(mv.Views) == 0 {
		return 0
	}
	return len(mv.Views[0].Joints)
}

// ComputeEpipolar scores every same-joint-type candidate pair across every
// camera pair as 1 - rayDistance/maxDistance, so pairs whose rays pass within
// maxDistance of each other score positive. Quadratic in per-type candidate
// counts, which stay in the tens per frame.
func (mv *MultiView) ComputeEpipolar(maxDistance float64) {
	numTypes := mv.NumJointTypes()
	for viewA := 0; viewA < len(mv.Views); viewA++ {
		for viewB := viewA + 1; viewB < len(mv.Views); viewB++ {
			for jointType := 0; jointType < numTypes; jointType++ {
				for _, jointA := range mv.Views[viewA].Joints[jointType] {
					for _, jointB := range mv.Views[viewB].Joints[jointType] {
						distance := spatialmath.RayDistance(jointA.Ray, jointB.Ray)
						mv.SetEpipolar(jointA, jointB, 1-distance/maxDistance)
					}
				}
			}
		}
	}
}

// SetEpipolar records the epipolar consistency score for a cross-camera
// candidate pair. The store is symmetric in its arguments.
func (mv *MultiView) SetEpipolar(a, b Joint, score float64) {
	mv.epipolars[newPairKey(a.ID, b.ID)] = score
}

// Epipolar returns the precomputed epipolar score between two candidates.
// Like View.Affinity, a pair that was never computed panics: it means
// ComputeEpipolar did not run over this frame before the search.
func (mv *MultiView) Epipolar(a, b Joint) float64 {
	score, ok := mv.epipolars[newPairKey(a.ID, b.ID)]
	if !ok {
		panic(fmt.Sprintf("epipolar score was never computed for joints %d and %d", a.ID, b.ID))
	}
	return score
}

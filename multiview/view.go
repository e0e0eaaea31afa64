package multiview

import (
	"fmt"

	"github.com/HYPER-THEORY/MMMocap/camera"
)

// View is one camera's candidate store for a single frame: the ordered
// detection candidates per joint type plus the part-affinity scores between
// candidates of anatomically adjacent joint types.
type View struct {
	Camera *camera.Camera

	// Joints is indexed by joint type, then candidate index.
	Joints [][]Joint

	affinities map[pairKey]float64
}

// NewView returns an empty view for the given camera and joint type count.
func NewView(cam *camera.Camera, numJointTypes int) *View {
	return &View{
		Camera:     cam,
		Joints:     make([][]Joint, numJointTypes),
		affinities: map[pairKey]float64{},
	}
}

// SetAffinity records the part-affinity score between two candidates of
// adjacent joint types. The store is symmetric in its arguments.
func (v *View) SetAffinity(a, b Joint, score float64) {
	v.affinities[newPairKey(a.ID, b.ID)] = score
}

// Affinity returns the precomputed part-affinity score between two candidates.
// All affinities must be precomputed before the search runs; asking for a pair
// that was never set is a contract violation and panics rather than returning
// a silently wrong score.
func (v *View) Affinity(a, b Joint) float64 {
	score, ok := v.affinities[newPairKey(a.ID, b.ID)]
	if !ok {
		panic(fmt.Sprintf("part affinity was never computed for joints %d and %d", a.ID, b.ID))
	}
	return score
}

// Package pose defines the reconstructed skeleton outputs and the skeleton
// topologies they are expressed in.
package pose

import "github.com/golang/geo/r3"

// Pose is one person's reconstructed 3D skeleton for a frame. HasJoint and
// JointPos are dense over all joint types; a joint is only marked present once
// at least two camera rays agreed on its triangulated position.
type Pose struct {
	ID       int
	HasJoint []bool
	JointPos []r3.Vector
}

// NewPose returns an empty pose over the given joint type count.
func NewPose(id, numJointTypes int) Pose {
	return Pose{
		ID:       id,
		HasJoint: make([]bool, numJointTypes),
		JointPos: make([]r3.Vector, numJointTypes),
	}
}

// NumJoints counts the joints actually present in the pose.
func (p *Pose) NumJoints() int {
	n := 0
	for _, has := range p.HasJoint {
		if has {
			n++
		}
	}
	return n
}

// MultiPersonPose is all people reconstructed from one frame.
type MultiPersonPose []Pose

package dataset

import (
	"math"

	"github.com/HYPER-THEORY/MMMocap/pose"
	"github.com/HYPER-THEORY/MMMocap/reconstruct"
)

// CalibrateMaxBoneLengths sets each listed bone's length limit on the
// reconstructor to the longest distance observed for it anywhere in the ground
// truth, plus margin. Bones never observed are left uncalibrated (unlimited).
func CalibrateMaxBoneLengths(
	rec *reconstruct.Reconstructor,
	groundTruth []pose.MultiPersonPose,
	bones []pose.Bone,
	margin float64,
) {
	for _, bone := range bones {
		longest := math.Inf(-1)
		for _, frame := range groundTruth {
			for _, person := range frame {
				if bone.A >= len(person.HasJoint) || bone.B >= len(person.HasJoint) {
					continue
				}
				if !person.HasJoint[bone.A] || !person.HasJoint[bone.B] {
					continue
				}
				length := person.JointPos[bone.A].Distance(person.JointPos[bone.B])
				if length > longest {
					longest = length
				}
			}
		}
		if !math.IsInf(longest, -1) {
			rec.SetMaxBoneLength(bone.A, bone.B, longest+margin)
		}
	}
}

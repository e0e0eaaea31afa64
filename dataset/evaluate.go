package dataset

import (
	"math"

	"github.com/HYPER-THEORY/MMMocap/pose"
)

// PCPResult accumulates percentage-of-correct-parts counts across frames.
type PCPResult struct {
	Correct int
	Total   int
}

// Add folds another frame's counts into the result.
func (r *PCPResult) Add(other PCPResult) {
	r.Correct += other.Correct
	r.Total += other.Total
}

// Ratio returns the fraction of correctly reconstructed bones, or 0 when
// nothing was scored.
func (r *PCPResult) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// PCP scores one frame's reconstruction against ground truth with the
// percentage-of-correct-parts metric. Each ground-truth person is matched to
// the reconstructed pose with the lowest mean distance over shared joints; a
// bone counts as correct when the summed endpoint errors stay under the bone's
// ground-truth length.
func PCP(computed, groundTruth pose.MultiPersonPose, bones []pose.Bone) PCPResult {
	var result PCPResult

	for _, gtPose := range groundTruth {
		if len(gtPose.HasJoint) == 0 {
			continue
		}
		closest := closestPose(computed, gtPose)

		for _, bone := range bones {
			if !gtPose.HasJoint[bone.A] || !gtPose.HasJoint[bone.B] {
				continue
			}
			result.Total++
			if closest == nil || !closest.HasJoint[bone.A] || !closest.HasJoint[bone.B] {
				continue
			}
			errA := closest.JointPos[bone.A].Distance(gtPose.JointPos[bone.A])
			errB := closest.JointPos[bone.B].Distance(gtPose.JointPos[bone.B])
			if errA+errB < gtPose.JointPos[bone.A].Distance(gtPose.JointPos[bone.B]) {
				result.Correct++
			}
		}
	}

	return result
}

func closestPose(computed pose.MultiPersonPose, gtPose pose.Pose) *pose.Pose {
	var closest *pose.Pose
	minDistance := math.Inf(1)
	for i := range computed {
		candidate := &computed[i]
		if len(candidate.HasJoint) == 0 {
			continue
		}
		distance := 0.0
		shared := 0
		numTypes := len(candidate.HasJoint)
		if len(gtPose.HasJoint) < numTypes {
			numTypes = len(gtPose.HasJoint)
		}
		for jointType := 0; jointType < numTypes; jointType++ {
			if candidate.HasJoint[jointType] && gtPose.HasJoint[jointType] {
				distance += candidate.JointPos[jointType].Distance(gtPose.JointPos[jointType])
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		distance /= float64(shared)
		if distance < minDistance {
			closest = candidate
			minDistance = distance
		}
	}
	return closest
}

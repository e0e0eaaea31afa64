package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/HYPER-THEORY/MMMocap/pose"
)

// LoadShelfGroundTruth reads the Shelf benchmark's keyword-stream ground
// truth: "frame N" opens a frame, "p ID" opens a person, "v x y z" appends a
// joint; unknown lines are skipped.
func LoadShelfGroundTruth(path string) ([]pose.MultiPersonPose, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening shelf ground truth")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return parseShelfGroundTruth(f)
}

func parseShelfGroundTruth(r io.Reader) ([]pose.MultiPersonPose, error) {
	var frames []pose.MultiPersonPose

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "frame":
			frames = append(frames, pose.MultiPersonPose{})
		case "p":
			if len(frames) == 0 || len(fields) < 2 {
				return nil, errors.New("person record before any frame record")
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Wrap(err, "bad person ID")
			}
			cur := &frames[len(frames)-1]
			*cur = append(*cur, pose.Pose{ID: id})
		case "v":
			if len(frames) == 0 || len(frames[len(frames)-1]) == 0 {
				return nil, errors.New("joint record before any person record")
			}
			if len(fields) < 4 {
				return nil, errors.Errorf("joint record has %d fields, want 4", len(fields))
			}
			var position r3.Vector
			for i, target := range []*float64{&position.X, &position.Y, &position.Z} {
				value, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, errors.Wrap(err, "bad joint position")
				}
				*target = value
			}
			cur := &frames[len(frames)-1]
			person := &(*cur)[len(*cur)-1]
			person.HasJoint = append(person.HasJoint, true)
			person.JointPos = append(person.JointPos, position)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading shelf ground truth")
	}

	return frames, nil
}

// shelfToBody25Mapping maps each of the first 15 BODY25 joint types to its
// Shelf 15-joint skeleton counterpart.
var shelfToBody25Mapping = []int{13, 12, 8, 7, 6, 9, 10, 11, 0, 2, 1, 0, 3, 4, 5}

// ShelfToBody25 remaps Shelf-skeleton poses in place to BODY25 joint indexing.
// The mid-hip, which Shelf does not label, is synthesized as the midpoint of
// the two hips when both are present.
func ShelfToBody25(frames []pose.MultiPersonPose) {
	numTypes := pose.BODY25().NumJointTypes()
	for _, frame := range frames {
		for personI, person := range frame {
			if len(person.HasJoint) == 0 {
				continue
			}
			remapped := pose.NewPose(person.ID, numTypes)
			for jointType, shelfType := range shelfToBody25Mapping {
				if shelfType < len(person.HasJoint) && person.HasJoint[shelfType] {
					remapped.HasJoint[jointType] = true
					remapped.JointPos[jointType] = person.JointPos[shelfType]
				}
			}
			if len(person.HasJoint) > 3 && person.HasJoint[2] && person.HasJoint[3] {
				remapped.HasJoint[8] = true
				remapped.JointPos[8] = person.JointPos[2].Add(person.JointPos[3]).Mul(0.5)
			} else {
				remapped.HasJoint[8] = false
			}
			frame[personI] = remapped
		}
	}
}

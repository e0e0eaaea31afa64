// Package dataset loads multi-camera detection datasets and ground truth, and
// scores reconstructions against them.
package dataset

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/HYPER-THEORY/MMMocap/camera"
	"github.com/HYPER-THEORY/MMMocap/multiview"
	"github.com/HYPER-THEORY/MMMocap/pose"
)

// pafPower flattens raw detector affinities; the detectors emit near-binary
// values and the search only cares about the sign margin.
const pafPower = 0.2

// tokenReader streams whitespace-separated numbers out of a detection or
// ground-truth file.
type tokenReader struct {
	scanner *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)
	return &tokenReader{scanner: scanner}
}

func (t *tokenReader) nextFloat() (float64, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.ParseFloat(t.scanner.Text(), 64)
}

func (t *tokenReader) nextInt() (int, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(t.scanner.Text())
}

// skeleton type 4 is BODY25 with the detector's 26 scored limbs
const body25SkeletonType = 4

// LoadT4DA loads a 4D Association style dataset directory: a calibration.json
// plus one detection/<camera>.txt per camera. It returns one MultiView per
// frame, with candidate rays cast and part affinities precomputed; epipolar
// scores are left to the caller, which owns the max-distance threshold.
func LoadT4DA(dir string, logger golog.Logger) ([]*multiview.MultiView, error) {
	cameras, err := camera.NewCamerasFromJSONFile(filepath.Join(dir, "calibration.json"))
	if err != nil {
		return nil, err
	}
	if len(cameras) == 0 {
		return nil, errors.Errorf("no cameras in dataset %q", dir)
	}

	frames := []*multiview.MultiView(nil)
	jointID := 0

	for viewI, cam := range cameras {
		detectionPath := filepath.Join(dir, "detection", cam.Name+".txt")
		views, count, err := loadDetections(detectionPath, cam, &jointID)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %q", cam.Name)
		}
		if frames == nil {
			frames = make([]*multiview.MultiView, count)
			for i := range frames {
				frames[i] = multiview.NewMultiView(make([]*multiview.View, len(cameras)))
			}
		} else if count != len(frames) {
			return nil, errors.Errorf("camera %q has %d frames, expected %d", cam.Name, count, len(frames))
		}
		for frame, view := range views {
			frames[frame].Views[viewI] = view
		}
		logger.Debugf("loaded %d frames of detections for camera %q", count, cam.Name)
	}

	return frames, nil
}

func loadDetections(path string, cam *camera.Camera, jointID *int) ([]*multiview.View, int, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "error opening detection file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return parseDetections(f, cam, jointID)
}

// parseDetections reads one camera's detection stream: a header of skeleton
// type and frame count, then per frame the candidate pixel/confidence rows per
// joint type followed by one part-affinity block per limb.
func parseDetections(r io.Reader, cam *camera.Camera, jointID *int) ([]*multiview.View, int, error) {
	tokens := newTokenReader(r)

	skeletonType, err := tokens.nextInt()
	if err != nil {
		return nil, 0, errors.Wrap(err, "error reading skeleton type")
	}
	if skeletonType != body25SkeletonType {
		return nil, 0, errors.Errorf("unknown skeleton type %d", skeletonType)
	}
	frameNum, err := tokens.nextInt()
	if err != nil {
		return nil, 0, errors.Wrap(err, "error reading frame count")
	}

	numTypes := pose.BODY25().NumJointTypes()
	bones := pose.BODY25Bones()

	views := make([]*multiview.View, frameNum)
	for frame := 0; frame < frameNum; frame++ {
		view := multiview.NewView(cam, numTypes)

		for jointType := 0; jointType < numTypes; jointType++ {
			count, err := tokens.nextInt()
			if err != nil {
				return nil, 0, errors.Wrapf(err, "frame %d joint type %d", frame, jointType)
			}
			candidates := make([]multiview.Joint, count)
			// u, v and confidence arrive as three rows of count values; pixel
			// coordinates are normalized to [0,1]
			for row := 0; row < 3; row++ {
				for i := 0; i < count; i++ {
					value, err := tokens.nextFloat()
					if err != nil {
						return nil, 0, errors.Wrapf(err, "frame %d joint type %d", frame, jointType)
					}
					switch row {
					case 0:
						candidates[i].UV.X = value * (cam.Width - 1)
					case 1:
						candidates[i].UV.Y = value * (cam.Height - 1)
					default:
						candidates[i].Conf = value
					}
				}
			}
			for i := range candidates {
				candidates[i].ID = *jointID
				*jointID++
				candidates[i].Ray = cam.RayThroughPixel(r2.Point{X: candidates[i].UV.X, Y: candidates[i].UV.Y})
			}
			view.Joints[jointType] = candidates
		}

		for _, bone := range bones {
			for _, jointA := range view.Joints[bone.A] {
				for _, jointB := range view.Joints[bone.B] {
					paf, err := tokens.nextFloat()
					if err != nil {
						return nil, 0, errors.Wrapf(err, "frame %d bone %d-%d", frame, bone.A, bone.B)
					}
					view.SetAffinity(jointA, jointB, math.Pow(paf, pafPower))
				}
			}
		}

		views[frame] = view
	}

	return views, frameNum, nil
}

// LoadT4DAGroundTruth reads a gt.txt: joint type and frame counts, then per
// frame a person count and per person an ID with x/y/z/presence rows.
func LoadT4DAGroundTruth(path string) ([]pose.MultiPersonPose, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening ground truth file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return parseT4DAGroundTruth(f)
}

func parseT4DAGroundTruth(r io.Reader) ([]pose.MultiPersonPose, error) {
	tokens := newTokenReader(r)

	numTypes, err := tokens.nextInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading joint type count")
	}
	frameNum, err := tokens.nextInt()
	if err != nil {
		return nil, errors.Wrap(err, "error reading frame count")
	}

	frames := make([]pose.MultiPersonPose, frameNum)
	for frame := 0; frame < frameNum; frame++ {
		personNum, err := tokens.nextInt()
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", frame)
		}
		people := make(pose.MultiPersonPose, personNum)
		for personI := range people {
			id, err := tokens.nextInt()
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d person %d", frame, personI)
			}
			person := pose.NewPose(id, numTypes)
			for row := 0; row < 4; row++ {
				for jointType := 0; jointType < numTypes; jointType++ {
					value, err := tokens.nextFloat()
					if err != nil {
						return nil, errors.Wrapf(err, "frame %d person %d", frame, personI)
					}
					switch row {
					case 0:
						person.JointPos[jointType].X = value
					case 1:
						person.JointPos[jointType].Y = value
					case 2:
						person.JointPos[jointType].Z = value
					default:
						person.HasJoint[jointType] = math.Abs(value) > 1e-4
					}
				}
			}
			people[personI] = person
		}
		frames[frame] = people
	}

	return frames, nil
}

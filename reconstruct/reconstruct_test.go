package reconstruct

import (
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/HYPER-THEORY/MMMocap/multiview"
	"github.com/HYPER-THEORY/MMMocap/pose"
	"github.com/HYPER-THEORY/MMMocap/spatialmath"
)

// chainSkeleton is a minimal 3-joint chain: 0 <- 1 <- 2.
func chainSkeleton(t *testing.T) *pose.Skeleton {
	t.Helper()
	skel, err := pose.NewSkeleton([]int{pose.NoParent, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	return skel
}

var chainOrder = [][]int{{0, 1, 2}}

// buildFrame constructs a synthetic two-plus-camera frame. Each person is a
// list of per-joint-type world positions; visible filters which cameras see
// which joints. Same-person part affinities are 0.9, cross-person 0.
func buildFrame(
	skel *pose.Skeleton,
	camPositions []r3.Vector,
	people [][]r3.Vector,
	epipolarMaxDist float64,
	visible func(view, jointType, person int) bool,
) *multiview.MultiView {
	numTypes := skel.NumJointTypes()
	views := make([]*multiview.View, len(camPositions))
	nextID := 0
	// owners[view][jointType][candidate] = person
	owners := make([][][]int, len(camPositions))

	for v, camPos := range camPositions {
		views[v] = multiview.NewView(nil, numTypes)
		owners[v] = make([][]int, numTypes)
		for jointType := 0; jointType < numTypes; jointType++ {
			for person, joints := range people {
				if visible != nil && !visible(v, jointType, person) {
					continue
				}
				target := joints[jointType]
				views[v].Joints[jointType] = append(views[v].Joints[jointType], multiview.Joint{
					ID:   nextID,
					Ray:  spatialRay(camPos, target),
					Conf: 0.9,
				})
				owners[v][jointType] = append(owners[v][jointType], person)
				nextID++
			}
		}
	}

	// part affinities for every candidate pair of every parent-child type pair
	for v := range views {
		for jointType := 0; jointType < numTypes; jointType++ {
			parent := skel.Parent(jointType)
			if parent == pose.NoParent {
				continue
			}
			for ci, child := range views[v].Joints[jointType] {
				for pi, par := range views[v].Joints[parent] {
					score := 0.0
					if owners[v][jointType][ci] == owners[v][parent][pi] {
						score = 0.9
					}
					views[v].SetAffinity(par, child, score)
				}
			}
		}
	}

	mv := multiview.NewMultiView(views)
	mv.ComputeEpipolar(epipolarMaxDist)
	return mv
}

func spatialRay(origin, target r3.Vector) spatialmath.Ray {
	return spatialmath.NewRay(origin, target.Sub(origin))
}

// camera heights differ from the subjects' so that rays to distinct people are
// genuinely skew and epipolar gating can tell them apart
func twoCameras() []r3.Vector {
	return []r3.Vector{{X: 5, Y: 0, Z: 2}, {X: 0, Y: 5, Z: 3}}
}

func personA() []r3.Vector {
	return []r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0.5, Z: 1}, {X: 0, Y: 1, Z: 1}}
}

func personB() []r3.Vector {
	return []r3.Vector{{X: 2, Y: 0, Z: 1}, {X: 2, Y: 0.5, Z: 1}, {X: 2, Y: 1, Z: 1}}
}

func newChainReconstructor(t *testing.T) *Reconstructor {
	t.Helper()
	rec, err := NewReconstructor(chainSkeleton(t), chainOrder, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	rec.SetMaxBoneLength(0, 1, 1.0)
	rec.SetMaxBoneLength(1, 2, 1.0)
	return rec
}

func TestComputeSinglePerson(t *testing.T) {
	skel := chainSkeleton(t)
	mv := buildFrame(skel, twoCameras(), [][]r3.Vector{personA()}, 0.05, nil)
	rec := newChainReconstructor(t)

	people, err := rec.Compute(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(people), test.ShouldEqual, 1)

	want := personA()
	for jointType := 0; jointType < 3; jointType++ {
		test.That(t, people[0].HasJoint[jointType], test.ShouldBeTrue)
		test.That(t, people[0].JointPos[jointType].Distance(want[jointType]), test.ShouldAlmostEqual, 0, 1e-6)
	}
}

func TestComputeOccludedJoint(t *testing.T) {
	skel := chainSkeleton(t)
	// joint type 2 is seen by camera 0 only
	mv := buildFrame(skel, twoCameras(), [][]r3.Vector{personA()}, 0.05,
		func(view, jointType, person int) bool {
			return !(jointType == 2 && view == 1)
		})
	rec := newChainReconstructor(t)

	people, err := rec.Compute(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(people), test.ShouldEqual, 1)
	test.That(t, people[0].HasJoint[0], test.ShouldBeTrue)
	test.That(t, people[0].HasJoint[1], test.ShouldBeTrue)
	// one ray is not enough to triangulate
	test.That(t, people[0].HasJoint[2], test.ShouldBeFalse)
}

func TestComputeSeparatesTwoPeople(t *testing.T) {
	skel := chainSkeleton(t)
	mv := buildFrame(skel, twoCameras(), [][]r3.Vector{personA(), personB()}, 0.05, nil)
	rec := newChainReconstructor(t)

	people, err := rec.Compute(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(people), test.ShouldEqual, 2)

	// each pose matches exactly one ground-truth person with no joint mixing
	for _, want := range [][]r3.Vector{personA(), personB()} {
		matched := 0
		for _, got := range people {
			all := true
			for jointType := 0; jointType < 3; jointType++ {
				if !got.HasJoint[jointType] || got.JointPos[jointType].Distance(want[jointType]) > 1e-6 {
					all = false
					break
				}
			}
			if all {
				matched++
			}
		}
		test.That(t, matched, test.ShouldEqual, 1)
	}
}

func TestBoneLengthPruning(t *testing.T) {
	skel := chainSkeleton(t)
	mv := buildFrame(skel, twoCameras(), [][]r3.Vector{personA()}, 0.05, nil)
	rec := newChainReconstructor(t)
	// actual distance between joint types 1 and 2 is 0.5
	rec.SetMaxBoneLength(1, 2, 0.1)

	clusters, err := rec.searchClusters(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(clusters), test.ShouldBeGreaterThan, 0)
	for _, cl := range clusters {
		test.That(t, cl.choice(cl.mainView, 2), test.ShouldEqual, noChoice)
	}

	people, err := rec.Compute(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(people), test.ShouldEqual, 1)
	test.That(t, people[0].HasJoint[1], test.ShouldBeTrue)
	test.That(t, people[0].HasJoint[2], test.ShouldBeFalse)
}

// replayScore re-derives a preserved cluster's score from its final
// assignments: a joint type contributes its affinity and epipolar terms only
// when it survived triangulation, which requires at least two assigned
// cameras.
func replayScore(skel *pose.Skeleton, mv *multiview.MultiView, jointOrder []int, cl *cluster) float64 {
	score := 0.0
	for jointI, jointType := range jointOrder {
		assigned := []int{}
		for view := range mv.Views {
			if cl.choice(view, jointType) != noChoice {
				assigned = append(assigned, view)
			}
		}
		if len(assigned) < 2 {
			continue
		}
		if jointI > 0 {
			parentType := skel.Parent(jointType)
			for _, view := range assigned {
				parentChoice := cl.choice(view, parentType)
				child := mv.Views[view].Joints[jointType][cl.choice(view, jointType)]
				parent := mv.Views[view].Joints[parentType][parentChoice]
				score += mv.Views[view].Affinity(parent, child)
			}
		}
		for i := 0; i < len(assigned); i++ {
			for j := i + 1; j < len(assigned); j++ {
				a := mv.Views[assigned[i]].Joints[jointType][cl.choice(assigned[i], jointType)]
				b := mv.Views[assigned[j]].Joints[jointType][cl.choice(assigned[j], jointType)]
				score += mv.Epipolar(a, b)
			}
		}
	}
	return score
}

func TestClusterScoreIntegrity(t *testing.T) {
	skel := chainSkeleton(t)
	mv := buildFrame(skel, twoCameras(), [][]r3.Vector{personA(), personB()}, 0.05, nil)
	rec := newChainReconstructor(t)

	clusters, err := rec.searchClusters(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(clusters), test.ShouldBeGreaterThan, 0)

	for _, cl := range clusters {
		test.That(t, cl.score, test.ShouldAlmostEqual, replayScore(skel, mv, chainOrder[0], cl), 1e-9)
	}
}

func TestMaxBoneLengthDefaults(t *testing.T) {
	rec := newChainReconstructor(t)
	test.That(t, rec.MaxBoneLength(0, 1), test.ShouldEqual, 1.0)
	test.That(t, rec.MaxBoneLength(1, 0), test.ShouldEqual, 1.0)
	test.That(t, math.IsInf(rec.MaxBoneLength(0, 2), 1), test.ShouldBeTrue)
}

func TestNewReconstructorValidation(t *testing.T) {
	skel := chainSkeleton(t)
	logger := golog.NewTestLogger(t)

	_, err := NewReconstructor(skel, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)

	// joint 2 listed before its parent 1
	_, err = NewReconstructor(skel, [][]int{{0, 2, 1}}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewReconstructor(skel, [][]int{{0, 1, 7}}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewReconstructor(skel, [][]int{{0, 1, 2}}, logger)
	test.That(t, err, test.ShouldBeNil)
}

func TestComputeEmptyFrame(t *testing.T) {
	skel := chainSkeleton(t)
	mv := buildFrame(skel, twoCameras(), nil, 0.05, nil)
	rec := newChainReconstructor(t)

	people, err := rec.Compute(context.Background(), mv)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(people), test.ShouldEqual, 0)
}

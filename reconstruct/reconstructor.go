// Package reconstruct associates 2D joint candidates across cameras and fuses
// them into per-person 3D skeletons. The engine runs a backtracking hypothesis
// search over camera permutations and limb-group joint orders, gated by
// part-affinity, epipolar consistency and bone-length constraints, then merges
// the surviving hypotheses into disjoint poses.
package reconstruct

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/HYPER-THEORY/MMMocap/multiview"
	"github.com/HYPER-THEORY/MMMocap/pose"
	"github.com/HYPER-THEORY/MMMocap/utils"
)

// scoreEpsilon is the acceptance floor for part-affinity and epipolar scores.
const scoreEpsilon = 1e-4

// bonePair is the canonical unordered key of a joint-type pair.
type bonePair struct {
	lo, hi int
}

func newBonePair(a, b int) bonePair {
	if a > b {
		a, b = b, a
	}
	return bonePair{lo: a, hi: b}
}

// Reconstructor reconstructs multi-person 3D poses from per-frame MultiViews.
// The skeleton, joint orders and bone-length limits are read-only during
// Compute, so one Reconstructor may serve many frames.
type Reconstructor struct {
	skeleton       *pose.Skeleton
	jointOrders    [][]int
	maxBoneLengths map[bonePair]float64
	logger         golog.Logger
}

// NewReconstructor builds an engine for the given skeleton. Each joint order
// is one sub-skeleton pass; within an order every joint after the first must
// have its parent earlier in the same order, since the search gates candidates
// on the parent's same-camera assignment.
func NewReconstructor(skel *pose.Skeleton, jointOrders [][]int, logger golog.Logger) (*Reconstructor, error) {
	if len(jointOrders) == 0 {
		return nil, errors.New("at least one joint order is required")
	}
	for _, order := range jointOrders {
		if len(order) == 0 {
			return nil, errors.New("empty joint order")
		}
		for i, jointType := range order {
			if jointType < 0 || jointType >= skel.NumJointTypes() {
				return nil, errors.Errorf("joint order contains out-of-range joint type %d", jointType)
			}
			if i == 0 {
				continue
			}
			parent := skel.Parent(jointType)
			found := false
			for _, prev := range order[:i] {
				if prev == parent {
					found = true
					break
				}
			}
			if !found {
				return nil, errors.Errorf("joint type %d appears in an order before its parent %d", jointType, parent)
			}
		}
	}
	return &Reconstructor{
		skeleton:       skel,
		jointOrders:    jointOrders,
		maxBoneLengths: map[bonePair]float64{},
		logger:         logger,
	}, nil
}

// SetMaxBoneLength sets the maximum allowed 3D distance between two connected
// joint types. The table is symmetric and externally calibrated.
func (r *Reconstructor) SetMaxBoneLength(jointTypeA, jointTypeB int, length float64) {
	r.maxBoneLengths[newBonePair(jointTypeA, jointTypeB)] = length
}

// MaxBoneLength returns the configured limit for a joint-type pair, or +Inf
// when the pair was never calibrated.
func (r *Reconstructor) MaxBoneLength(jointTypeA, jointTypeB int) float64 {
	if length, ok := r.maxBoneLengths[newBonePair(jointTypeA, jointTypeB)]; ok {
		return length
	}
	return math.Inf(1)
}

// Compute reconstructs one frame. Part-affinity and epipolar scores must be
// fully precomputed on the MultiView before calling.
func (r *Reconstructor) Compute(ctx context.Context, mv *multiview.MultiView) (pose.MultiPersonPose, error) {
	clusters, err := r.searchClusters(ctx, mv)
	if err != nil {
		return nil, err
	}
	people := resolveClusters(clusters, len(mv.Views), mv.NumJointTypes())
	r.logger.Debugf("resolved %d people from %d preserved clusters", len(people), len(clusters))
	return people, nil
}

// searchClusters runs one search pass per (camera permutation x joint order)
// combination and returns the flat preserved-cluster list. Passes for distinct
// camera permutations are independent, so they run concurrently, each on
// private state; per-permutation results are flattened in permutation order to
// keep the output deterministic.
func (r *Reconstructor) searchClusters(ctx context.Context, mv *multiview.MultiView) ([]*cluster, error) {
	numViews := len(mv.Views)
	if numViews == 0 {
		return nil, nil
	}

	viewOrders := rotationOrders(numViews)
	perOrder := make([][]*cluster, len(viewOrders))

	fs := make([]utils.SimpleFunc, 0, len(viewOrders))
	for i, viewOrder := range viewOrders {
		i, viewOrder := i, viewOrder
		fs = append(fs, func(ctx context.Context) error {
			runner := newPassRunner(r, mv, viewOrder)
			for _, jointOrder := range r.jointOrders {
				runner.run(jointOrder)
			}
			perOrder[i] = runner.preserved
			return nil
		})
	}
	if _, err := utils.RunInParallel(ctx, fs); err != nil {
		return nil, err
	}

	var clusters []*cluster
	for _, part := range perOrder {
		clusters = append(clusters, part...)
	}
	return clusters, nil
}

// rotationOrders returns the n cyclic rotations of (0..n-1); each rotation
// anchors a different main camera.
func rotationOrders(n int) [][]int {
	orders := make([][]int, n)
	for i := range orders {
		order := make([]int, n)
		for j := range order {
			order[j] = (i + j) % n
		}
		orders[i] = order
	}
	return orders
}

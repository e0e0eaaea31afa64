package pose

import "github.com/pkg/errors"

// NoParent marks the root joint type in a skeleton's parent table.
const NoParent = -1

// Bone is a pair of anatomically connected joint types.
type Bone struct {
	A, B int
}

// Skeleton is a joint-type tree: one parent pointer per joint type with a
// single root. The parent relation decides which bone-length constraint
// applies to a joint during reconstruction.
type Skeleton struct {
	parents []int
	root    int
}

// NewSkeleton validates and returns a skeleton over the given parent table.
func NewSkeleton(parents []int) (*Skeleton, error) {
	root := NoParent
	for jointType, parent := range parents {
		switch {
		case parent == NoParent:
			if root != NoParent {
				return nil, errors.Errorf("joint types %d and %d are both roots", root, jointType)
			}
			root = jointType
		case parent < 0 || parent >= len(parents):
			return nil, errors.Errorf("joint type %d has out-of-range parent %d", jointType, parent)
		case parent == jointType:
			return nil, errors.Errorf("joint type %d is its own parent", jointType)
		}
	}
	if root == NoParent {
		return nil, errors.New("skeleton has no root joint type")
	}
	return &Skeleton{parents: append([]int(nil), parents...), root: root}, nil
}

// MustNewSkeleton is NewSkeleton for statically known-good parent tables.
func MustNewSkeleton(parents []int) *Skeleton {
	skel, err := NewSkeleton(parents)
	if err != nil {
		panic(err)
	}
	return skel
}

// NumJointTypes returns the number of joint types in the skeleton.
func (s *Skeleton) NumJointTypes() int {
	return len(s.parents)
}

// Root returns the rootless joint type.
func (s *Skeleton) Root() int {
	return s.root
}

// Parent returns the parent joint type of the given joint type, or NoParent.
func (s *Skeleton) Parent(jointType int) int {
	return s.parents[jointType]
}

// BODY25 is the 25-joint OpenPose topology rooted at the mid-hip, with ears
// parented to their shoulders.
func BODY25() *Skeleton {
	return MustNewSkeleton([]int{
		1, 8, 1, 2, 3, 1, 5, 6, NoParent, 8, 9, 10, 8,
		12, 13, 0, 0, 2, 5, 14, 19, 14, 11, 22, 11,
	})
}

// BODY25JointOrders are the sub-skeleton search orders for BODY25: each pass
// walks one limb group outward from the mid-hip, bounding the branching factor.
func BODY25JointOrders() [][]int {
	return [][]int{
		{8, 1, 2, 3, 4},
		{8, 1, 5, 6, 7},
		{8, 1, 0},
		{8, 9, 10, 11},
		{8, 12, 13, 14},
		{8, 1, 2, 17},
		{8, 1, 5, 18},
	}
}

// BODY25Bones lists the detector's 26 scored limb connections in the order
// part-affinity blocks appear in detection files.
func BODY25Bones() []Bone {
	return []Bone{
		{1, 8}, {9, 10}, {10, 11}, {8, 9}, {8, 12}, {12, 13}, {13, 14},
		{1, 2}, {2, 3}, {3, 4}, {2, 17}, {1, 5}, {5, 6},
		{6, 7}, {5, 18}, {1, 0}, {0, 15}, {0, 16}, {15, 17}, {16, 18},
		{14, 19}, {19, 20}, {14, 21}, {11, 22}, {22, 23}, {11, 24},
	}
}

// BODY25EvaluationBones are the torso and limb bones scored by the PCP metric.
func BODY25EvaluationBones() []Bone {
	return []Bone{
		{0, 1}, {1, 2}, {1, 5}, {1, 8}, {2, 3}, {3, 4}, {5, 6},
		{6, 7}, {8, 9}, {8, 12}, {9, 10}, {10, 11}, {12, 13}, {13, 14},
	}
}

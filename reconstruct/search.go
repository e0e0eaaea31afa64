package reconstruct

import (
	"github.com/HYPER-THEORY/MMMocap/multiview"
	"github.com/HYPER-THEORY/MMMocap/spatialmath"
)

// passRunner owns everything one camera permutation mutates during its passes:
// the working cluster, the per-joint score history used for rollback, the
// preserved results and the triangulation scratch buffers. Runners never share
// state, which is what lets permutations run concurrently.
type passRunner struct {
	rec       *Reconstructor
	mv        *multiview.MultiView
	viewOrder []int

	jointOrder    []int
	cl            *cluster
	historyScores []float64
	preserved     []*cluster

	rays    []spatialmath.Ray
	weights []float64
}

func newPassRunner(rec *Reconstructor, mv *multiview.MultiView, viewOrder []int) *passRunner {
	numTypes := mv.NumJointTypes()
	cl := newCluster(len(mv.Views), numTypes)
	cl.mainView = viewOrder[0]
	return &passRunner{
		rec:           rec,
		mv:            mv,
		viewOrder:     viewOrder,
		cl:            cl,
		historyScores: make([]float64, numTypes),
		rays:          make([]spatialmath.Ray, 0, len(mv.Views)),
		weights:       make([]float64, 0, len(mv.Views)),
	}
}

// run performs one sub-skeleton pass over the given joint order. The working
// cluster is fully restored by the unwinding recursion, so it carries over
// between passes.
func (p *passRunner) run(jointOrder []int) {
	p.jointOrder = jointOrder
	p.search(0, 0)
}

// search assigns one (or no) candidate for (viewOrder[viewI], jointOrder[jointI])
// and recurses across cameras, then joint types. Every mutation of the working
// cluster is undone before returning.
func (p *passRunner) search(viewI, jointI int) {
	if jointI == len(p.jointOrder) {
		// full assignment: preserve a copy, commit nothing yet
		p.preserved = append(p.preserved, p.cl.clone())
		return
	}

	view := p.viewOrder[viewI]
	jointType := p.jointOrder[jointI]
	isRoot := jointI == 0

	parentType := noChoice
	parentChoice := noChoice
	if !isRoot {
		parentType = p.rec.skeleton.Parent(jointType)
		parentChoice = p.cl.choice(view, parentType)
	}

	matched := false

	// a candidate is only considered when the parent joint was assigned in the
	// same camera (or this is the pass root)
	if isRoot || parentChoice != noChoice {
		candidates := p.mv.Views[view].Joints[jointType]
		for choiceIdx := range candidates {
			candidate := candidates[choiceIdx]

			var affinity float64
			if !isRoot {
				parentJoint := p.mv.Views[view].Joints[parentType][parentChoice]
				affinity = p.mv.Views[view].Affinity(parentJoint, candidate)
				if affinity < scoreEpsilon {
					continue
				}
			}

			// every previously assigned camera must agree epipolarly
			epipolarSum := 0.0
			consistent := true
			for prevI := 0; prevI < viewI; prevI++ {
				prevView := p.viewOrder[prevI]
				prevChoice := p.cl.choice(prevView, jointType)
				if prevChoice == noChoice {
					continue
				}
				prevJoint := p.mv.Views[prevView].Joints[jointType][prevChoice]
				epipolar := p.mv.Epipolar(prevJoint, candidate)
				if epipolar < scoreEpsilon {
					consistent = false
					break
				}
				epipolarSum += epipolar
			}
			if !consistent {
				continue
			}

			originalScore := p.cl.score
			p.cl.setChoice(view, jointType, choiceIdx)
			p.cl.score += affinity + epipolarSum

			if viewI == len(p.viewOrder)-1 {
				p.descendToNextJoint(jointI, isRoot, jointType, parentType)
			} else {
				p.search(viewI+1, jointI)
			}

			p.cl.setChoice(view, jointType, noChoice)
			p.cl.score = originalScore

			matched = true
		}
	}

	// Skip strategy: always skip at the last camera so the joint can still be
	// committed from the other cameras; always skip at intermediate cameras in
	// addition to any match; at the main camera, skip only when nothing
	// matched.
	switch {
	case viewI == len(p.viewOrder)-1:
		originalScore := p.cl.score
		p.descendToNextJoint(jointI, isRoot, jointType, parentType)
		p.cl.score = originalScore
	case viewI != 0:
		p.search(viewI+1, jointI)
	case !matched:
		p.historyScores[jointI] = p.cl.score
		p.search(0, jointI+1)
	}
}

// descendToNextJoint closes out the current joint type at the last camera:
// triangulate the assigned candidates, prune on bone length, then recurse to
// the next joint type. A joint that cannot be triangulated from at least two
// cameras, or whose bone to the parent exceeds the configured limit, has its
// main-camera assignment undone and the score restored to the value recorded
// before this joint type was attempted.
func (p *passRunner) descendToNextJoint(jointI int, isRoot bool, jointType, parentType int) {
	mainView := p.viewOrder[0]
	mainChoice := p.cl.choice(mainView, jointType)

	prevScore := 0.0
	if jointI > 0 {
		prevScore = p.historyScores[jointI-1]
	}

	if !p.computeWorldPos(jointType) {
		p.cl.setChoice(mainView, jointType, noChoice)
		p.cl.score = prevScore
	} else if !isRoot {
		boneLength := p.cl.worldPos[parentType].Distance(p.cl.worldPos[jointType])
		if boneLength > p.rec.MaxBoneLength(jointType, parentType) {
			p.cl.setChoice(mainView, jointType, noChoice)
			p.cl.score = prevScore
		}
	}

	p.historyScores[jointI] = p.cl.score
	p.search(0, jointI+1)

	p.cl.setChoice(mainView, jointType, mainChoice)
}

// computeWorldPos triangulates the joint type's assigned candidates, weighting
// each ray by squared confidence. It reports false when fewer than two cameras
// contributed or the rays were too degenerate to fuse.
func (p *passRunner) computeWorldPos(jointType int) bool {
	p.rays = p.rays[:0]
	p.weights = p.weights[:0]
	for _, view := range p.viewOrder {
		choiceIdx := p.cl.choice(view, jointType)
		if choiceIdx == noChoice {
			continue
		}
		joint := p.mv.Views[view].Joints[jointType][choiceIdx]
		p.rays = append(p.rays, joint.Ray)
		p.weights = append(p.weights, joint.Conf*joint.Conf)
	}
	if len(p.rays) < 2 {
		return false
	}
	pos, err := spatialmath.MultiRayIntersect(p.rays, p.weights)
	if err != nil {
		return false
	}
	p.cl.worldPos[jointType] = pos
	return true
}

package reconstruct

import "github.com/golang/geo/r3"

// noChoice marks an unassigned (camera, joint type) slot in a cluster.
const noChoice = -1

// cluster is one partial-skeleton hypothesis: per camera, per joint type,
// either a candidate index or noChoice, plus the score accumulated along its
// build path and the triangulated world position per joint type. Clusters are
// transient search state; a completed pass deep-copies them into the preserved
// list.
type cluster struct {
	mainView int
	score    float64
	choices  [][]int
	worldPos []r3.Vector
}

func newCluster(numViews, numJointTypes int) *cluster {
	choices := make([][]int, numViews)
	for view := range choices {
		perType := make([]int, numJointTypes)
		for jointType := range perType {
			perType[jointType] = noChoice
		}
		choices[view] = perType
	}
	return &cluster{
		choices:  choices,
		worldPos: make([]r3.Vector, numJointTypes),
	}
}

func (c *cluster) choice(view, jointType int) int {
	return c.choices[view][jointType]
}

func (c *cluster) setChoice(view, jointType, choice int) {
	c.choices[view][jointType] = choice
}

func (c *cluster) clone() *cluster {
	choices := make([][]int, len(c.choices))
	for view := range c.choices {
		choices[view] = append([]int(nil), c.choices[view]...)
	}
	return &cluster{
		mainView: c.mainView,
		score:    c.score,
		choices:  choices,
		worldPos: append([]r3.Vector(nil), c.worldPos...),
	}
}

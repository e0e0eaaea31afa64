package reconstruct

import (
	"sort"

	"github.com/HYPER-THEORY/MMMocap/pose"
)

// claim identifies one (camera, joint type, candidate) triple a cluster stakes.
type claim struct {
	view, jointType, choice int
}

// slot identifies a person's recorded candidate for one (camera, joint type).
type slot struct {
	view, jointType, person int
}

// resolveClusters greedily merges the preserved clusters into disjoint people.
// Clusters are visited in descending score order; a cluster is rejected
// outright when its claims span more than one already-committed person or
// contradict a person's recorded candidate for any (camera, joint type).
// Accepted clusters commit all their claims, and the first cluster to supply a
// joint type for a person also supplies its triangulated position. Only joint
// types with a main-camera assignment count: a cluster whose main camera saw
// nothing cannot anchor or extend anyone.
func resolveClusters(clusters []*cluster, numViews, numJointTypes int) pose.MultiPersonPose {
	sorted := append([]*cluster(nil), clusters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].score > sorted[j].score
	})

	claimedBy := map[claim]int{}
	recordedChoice := map[slot]int{}

	people := pose.MultiPersonPose{}

	for _, cl := range sorted {
		conflicting := false
		contributing := false
		personID := -1

		for jointType := 0; jointType < numJointTypes && !conflicting; jointType++ {
			if cl.choice(cl.mainView, jointType) == noChoice {
				continue
			}
			for view := 0; view < numViews; view++ {
				choice := cl.choice(view, jointType)
				if choice == noChoice {
					continue
				}
				owner, owned := claimedBy[claim{view, jointType, choice}]
				switch {
				case !owned:
					contributing = true
				case personID == -1:
					personID = owner
				case personID != owner:
					conflicting = true
				}
				if conflicting {
					break
				}
			}
		}
		if conflicting || !contributing {
			continue
		}

		if personID == -1 {
			personID = len(people)
			people = append(people, pose.NewPose(personID, numJointTypes))
		} else {
			// merging into an existing person: every claim must match what the
			// person already has on record
			for jointType := 0; jointType < numJointTypes && !conflicting; jointType++ {
				if cl.choice(cl.mainView, jointType) == noChoice {
					continue
				}
				for view := 0; view < numViews; view++ {
					choice := cl.choice(view, jointType)
					if choice == noChoice {
						continue
					}
					if recorded, ok := recordedChoice[slot{view, jointType, personID}]; ok && recorded != choice {
						conflicting = true
						break
					}
				}
			}
			if conflicting {
				continue
			}
		}

		person := &people[personID]
		for jointType := 0; jointType < numJointTypes; jointType++ {
			if cl.choice(cl.mainView, jointType) == noChoice {
				continue
			}
			for view := 0; view < numViews; view++ {
				choice := cl.choice(view, jointType)
				if choice == noChoice {
					continue
				}
				claimedBy[claim{view, jointType, choice}] = personID
				recordedChoice[slot{view, jointType, personID}] = choice
				if !person.HasJoint[jointType] {
					person.HasJoint[jointType] = true
					person.JointPos[jointType] = cl.worldPos[jointType]
				}
			}
		}
	}

	return people
}

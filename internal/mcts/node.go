package mcts

import (
	"math"

	"github.com/signalnine/arena/internal/simulator"
)

// edge is one candidate joint action out of a node: either unexpanded
// (child == -1, only carries its sampled prior weight) or expanded into a
// child node.
type edge struct {
	action    simulator.PlayerAction
	prior     float64
	child     int // index into Tree.nodes, -1 if unexpanded
	visits    int
	totalEval float64
}

func (e *edge) mean() float64 {
	if e.visits == 0 {
		return 0
	}
	return e.totalEval / float64(e.visits)
}

// node is one tree position: a cloned game state plus the set of candidate
// joint actions sampled for it. Nodes live in Tree.nodes and reference each
// other by index rather than by pointer, so the tree carries no reference
// cycles and can be reset by simply truncating the slice.
type node struct {
	parent   int
	state    simulator.GameState
	edges    []*edge
	visits   int
}

// uct is the standard UCB1 score, used for the "global value" branch of
// selection.
func uct(rewards float64, visits int, c2LnN float64) float64 {
	if visits == 0 {
		panic("cannot compute UCT: 0 visits")
	}
	return rewards/float64(visits) + math.Sqrt(c2LnN/float64(visits))
}

// bestByVisits returns the index of the edge with the most visits, ties
// broken by mean evaluation then by prior.
func bestByVisits(edges []*edge) int {
	best := -1
	for i, e := range edges {
		if e.visits == 0 {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := edges[best]
		switch {
		case e.visits > b.visits:
			best = i
		case e.visits == b.visits && e.mean() > b.mean():
			best = i
		case e.visits == b.visits && e.mean() == b.mean() && e.prior > b.prior:
			best = i
		}
	}
	if best == -1 && len(edges) > 0 {
		best = 0
	}
	return best
}

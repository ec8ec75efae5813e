// Package mcts implements the epsilon-greedy, LLM-informed Monte Carlo tree
// search (C4): each node samples candidate joint actions from the policy
// prior cache, selection mixes pure-expansion, local-exploitation, and
// global UCB1 branches, and leaf values come from the strategic evaluation
// function. Grounded on
// christopherWilliams98-risk-agent/searcher/mcts.go and searcher/node.go for
// the functional-options shape and the uct() formula, and on
// original_source/src/ai/mcts/LLMGuidedMCTS.java for the epsilon schedule
// and refresh cadences.
package mcts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/rs/zerolog"

	"github.com/signalnine/arena/internal/evaluation"
	"github.com/signalnine/arena/internal/llm"
	"github.com/signalnine/arena/internal/priors"
	"github.com/signalnine/arena/internal/simulator"
)

// Tree runs one search from a fixed (owner, opponent) perspective. It is not
// safe for concurrent use; callers run one Tree per agent per game.
type Tree struct {
	priorCache *priors.Cache
	owner      int
	opponent   int
	log        zerolog.Logger

	epsilon0      float64
	epsilonLocal  float64
	epsilonGlobal float64

	candidatesPerExpansion int
	rolloutLookahead       int
	discount               float64
	model                  string

	rng *rand.Rand

	mu               sync.Mutex
	goals            evaluation.Goals
	goalClient       *llm.Client
	goalRefreshTicks int
	lastGoalRefresh  int
	goalRefreshes    int
	goalRefreshErrs  int

	nodes []*node
}

// Stats summarizes goal-refresh activity, mirroring the counters the
// teacher's llm.Client.Stats exposes.
func (t *Tree) Stats() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("goal_refreshes=%d goal_refresh_errors=%d", t.goalRefreshes, t.goalRefreshErrs)
}

// Option configures a Tree at construction time.
type Option func(*Tree)

// WithEpsilons overrides the selection-branch probabilities. Defaults
// (0.4/0.3/0.0) are grounded on LLMGuidedMCTS.java: its global-UCB branch is
// unused there in favor of always falling back to uniform exploration once
// the epsilon-0/epsilon-local budget is spent, which this package preserves
// by routing the remaining probability mass to a uniform pick among already
// -expanded edges.
func WithEpsilons(epsilon0, epsilonLocal, epsilonGlobal float64) Option {
	return func(t *Tree) {
		t.epsilon0 = epsilon0
		t.epsilonLocal = epsilonLocal
		t.epsilonGlobal = epsilonGlobal
	}
}

// WithCandidatesPerExpansion bounds how many joint actions are sampled for a
// node the first time it is visited, since the full product of per-unit
// legal actions is exponential in unit count.
func WithCandidatesPerExpansion(n int) Option {
	return func(t *Tree) { t.candidatesPerExpansion = n }
}

// WithRolloutLookahead sets the max number of ticks a playout simulates
// before handing the resulting state to the evaluation function.
func WithRolloutLookahead(ticks int) Option {
	return func(t *Tree) { t.rolloutLookahead = ticks }
}

// WithDiscount sets the per-10-tick discount factor applied to rollout
// values, so that a near-term outcome outweighs an equally good but more
// distant one.
func WithDiscount(d float64) Option {
	return func(t *Tree) { t.discount = d }
}

// WithModel sets the model name sent with each MaybeRefreshGoal request.
func WithModel(name string) Option {
	return func(t *Tree) { t.model = name }
}

// WithGoalRefresh enables periodic LLM-driven goal reassessment: every
// goalRefreshTicks ticks, MaybeRefreshGoal asks client for an updated Goals
// value and keeps the previous one on any failure. Search itself does not
// refresh goals.
func WithGoalRefresh(client *llm.Client, ticksInterval int) Option {
	return func(t *Tree) {
		t.goalClient = client
		t.goalRefreshTicks = ticksInterval
		t.lastGoalRefresh = -ticksInterval
	}
}

// New builds a Tree searching from owner's perspective against opponent,
// using cache for per-unit action priors and goals for the initial
// strategic evaluation weighting.
func New(cache *priors.Cache, owner, opponent int, goals evaluation.Goals, log zerolog.Logger, opts ...Option) *Tree {
	t := &Tree{
		priorCache:             cache,
		owner:                  owner,
		opponent:               opponent,
		log:                    log,
		epsilon0:               0.4,
		epsilonLocal:           0.3,
		epsilonGlobal:          0.0,
		candidatesPerExpansion: 8,
		rolloutLookahead:       100,
		discount:               0.99,
		goals:                  goals,
		rng:                    rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SeedRNG reseeds the tree's random source, which New seeds with 1; tests
// use this for determinism.
func (t *Tree) SeedRNG(seed uint64) {
	t.rng = rand.New(rand.NewSource(seed))
}

func (t *Tree) currentGoals() evaluation.Goals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.goals
}

// MaybeRefreshGoal asks the LLM for a new strategic goal assignment if the
// refresh cadence has elapsed, leaving the current goals untouched on any
// failure.
func (t *Tree) MaybeRefreshGoal(ctx context.Context, tick int) {
	if t.goalClient == nil {
		return
	}
	t.mu.Lock()
	due := tick-t.lastGoalRefresh >= t.goalRefreshTicks
	t.mu.Unlock()
	if !due {
		return
	}
	t.mu.Lock()
	t.lastGoalRefresh = tick
	t.mu.Unlock()

	text, err := t.goalClient.Generate(ctx, goalRefreshPrompt(), llm.Options{Model: t.model})
	if err != nil {
		t.mu.Lock()
		t.goalRefreshErrs++
		t.mu.Unlock()
		t.log.Debug().Err(err).Msg("goal refresh failed, keeping current goals")
		return
	}
	var parsed struct {
		Primary   evaluation.Goal           `json:"primary"`
		Secondary evaluation.Goal           `json:"secondary"`
		Target    evaluation.TargetPriority `json:"target"`
		Reasoning string                    `json:"reasoning"`
	}
	if err := llm.ExtractJSON(text, &parsed); err != nil {
		t.mu.Lock()
		t.goalRefreshErrs++
		t.mu.Unlock()
		t.log.Warn().Err(err).Msg("goal refresh returned unparseable JSON")
		return
	}
	if parsed.Primary == "" {
		return
	}
	newGoals := evaluation.Goals{Primary: parsed.Primary, Secondary: parsed.Secondary, Target: parsed.Target}
	t.mu.Lock()
	changed := t.goals != newGoals
	t.goals = newGoals
	t.goalRefreshes++
	t.mu.Unlock()
	if !changed {
		return
	}
	t.log.Info().
		Str("primary", string(parsed.Primary)).
		Str("secondary", string(parsed.Secondary)).
		Str("reasoning", parsed.Reasoning).
		Int("tick", tick).
		Msg("mcts goal refresh")
}

func goalRefreshPrompt() string {
	return "Return a JSON object {\"primary\":...,\"secondary\":...,\"target\":...,\"reasoning\":...} naming the agent's next strategic goal."
}

// Search runs iterations simulations from root and returns owner's chosen
// joint action: the root edge with the most visits.
func (t *Tree) Search(ctx context.Context, root simulator.GameState, iterations int, perIterationBudget time.Duration) simulator.PlayerAction {
	t.nodes = []*node{{parent: -1, state: root}}

	deadline := time.Now().Add(perIterationBudget)
searchLoop:
	for i := 0; i < iterations; i++ {
		if perIterationBudget > 0 && time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			break searchLoop
		default:
		}
		t.simulateOnce()
	}

	rootNode := t.nodes[0]
	best := bestByVisits(rootNode.edges)
	if best == -1 {
		return simulator.PlayerAction{}
	}
	return rootNode.edges[best].action
}

func (t *Tree) simulateOnce() {
	path := []int{0}
	cur := 0

	for {
		n := t.nodes[cur]
		if n.state.Terminal() {
			break
		}
		if len(n.edges) == 0 {
			t.populateEdges(cur)
			if len(n.edges) == 0 {
				break
			}
		}
		edgeIdx := t.selectEdge(cur)
		e := n.edges[edgeIdx]
		if e.child == -1 {
			path = append(path, t.expand(cur, edgeIdx))
			break
		}
		path = append(path, e.child)
		cur = e.child
	}

	leafIdx := path[len(path)-1]
	reward := t.rollout(leafIdx)
	t.backup(path, reward)
}

// populateEdges samples up to candidatesPerExpansion distinct joint actions
// for owner at nodeIdx, weighted by the product of each unit's prior
// probability, and records them as unexpanded edges.
func (t *Tree) populateEdges(nodeIdx int) {
	n := t.nodes[nodeIdx]
	legal := n.state.LegalActions(t.owner)
	if len(legal) == 0 {
		return
	}
	byUnit := groupByUnit(legal)

	seen := map[string]bool{}
	for i := 0; i < t.candidatesPerExpansion; i++ {
		action, prob := t.sampleJointAction(n.state, byUnit)
		key := actionKey(action)
		if seen[key] {
			continue
		}
		seen[key] = true
		n.edges = append(n.edges, &edge{action: action, prior: prob, child: -1})
	}
}

func groupByUnit(actions []simulator.Action) map[int][]simulator.Action {
	out := map[int][]simulator.Action{}
	for _, a := range actions {
		out[a.UnitID] = append(out[a.UnitID], a)
	}
	return out
}

// sampleJointAction draws one action per unit from its prior distribution
// and returns the joint action plus its joint probability (the product of
// each chosen action's probability).
func (t *Tree) sampleJointAction(state simulator.GameState, byUnit map[int][]simulator.Action) (simulator.PlayerAction, float64) {
	// Walk units in UnitsOf order rather than ranging over the byUnit map, so
	// a fixed seed draws the same random numbers for the same units.
	prob := 1.0
	var actions []simulator.Action
	for _, u := range state.UnitsOf(t.owner) {
		legal, ok := byUnit[u.ID]
		if !ok {
			continue
		}
		dist := t.priorCache.Distribution(u, state, legal)
		a, p := weightedChoice(legal, dist, t.rng)
		actions = append(actions, a)
		prob *= p
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].UnitID < actions[j].UnitID })
	return simulator.PlayerAction{Actions: actions}, prob
}

func weightedChoice(legal []simulator.Action, dist map[simulator.Action]float64, rng *rand.Rand) (simulator.Action, float64) {
	if len(legal) == 0 {
		return simulator.Action{}, 1.0
	}
	r := rng.Float64()
	var cum float64
	for _, a := range legal {
		cum += dist[a]
		if r <= cum {
			return a, dist[a]
		}
	}
	last := legal[len(legal)-1]
	return last, dist[last]
}

func actionKey(pa simulator.PlayerAction) string {
	s := ""
	for _, a := range pa.Actions {
		s += fmt.Sprintf("%d:%d:%d,%d|", a.UnitID, a.Kind, a.Target.X, a.Target.Y)
	}
	return s
}

// selectEdge picks which edge of node nodeIdx to descend into, mixing three
// branches: epsilon0 expands an unvisited candidate, epsilonLocal exploits
// the best mean-value expanded edge, epsilonGlobal explores via UCB1, and
// any remaining probability falls back to a uniform pick among expanded
// edges.
func (t *Tree) selectEdge(nodeIdx int) int {
	n := t.nodes[nodeIdx]
	var unexpanded, expanded []int
	for i, e := range n.edges {
		if e.child == -1 {
			unexpanded = append(unexpanded, i)
		} else {
			expanded = append(expanded, i)
		}
	}

	r := t.rng.Float64()
	if r < t.epsilon0 && len(unexpanded) > 0 {
		return pickByPrior(n.edges, unexpanded, t.rng)
	}
	if len(expanded) == 0 {
		if len(unexpanded) > 0 {
			return pickByPrior(n.edges, unexpanded, t.rng)
		}
		return 0
	}

	switch {
	case r < t.epsilon0+t.epsilonLocal:
		return bestAmong(n.edges, expanded, func(e *edge) float64 { return e.mean() })
	case r < t.epsilon0+t.epsilonLocal+t.epsilonGlobal:
		lnN := math.Log(float64(n.visits + 1))
		return bestAmong(n.edges, expanded, func(e *edge) float64 { return uct(e.totalEval, e.visits, lnN) })
	default:
		return expanded[t.rng.Intn(len(expanded))]
	}
}

func pickByPrior(edges []*edge, candidates []int, rng *rand.Rand) int {
	var total float64
	for _, i := range candidates {
		total += edges[i].prior
	}
	if total <= 0 {
		return candidates[rng.Intn(len(candidates))]
	}
	r := rng.Float64() * total
	var cum float64
	for _, i := range candidates {
		cum += edges[i].prior
		if r <= cum {
			return i
		}
	}
	return candidates[len(candidates)-1]
}

func bestAmong(edges []*edge, candidates []int, score func(*edge) float64) int {
	best := candidates[0]
	bestScore := score(edges[best])
	for _, i := range candidates[1:] {
		s := score(edges[i])
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// expand advances the state at nodeIdx by edgeIdx's owner action and a
// sampled opponent action, creating and linking a new child node.
func (t *Tree) expand(nodeIdx, edgeIdx int) int {
	n := t.nodes[nodeIdx]
	e := n.edges[edgeIdx]

	oppLegal := n.state.LegalActions(t.opponent)
	oppAction, _ := t.sampleJointAction(n.state, groupByUnit(oppLegal))

	p0, p1 := t.placeActions(e.action, oppAction)
	next := n.state.Advance(p0, p1)

	child := &node{parent: nodeIdx, state: next}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, child)
	e.child = idx
	return idx
}

// placeActions maps (ownerAction, opponentAction) onto the (p0, p1)
// argument order GameState.Advance expects, per the owner's player side.
func (t *Tree) placeActions(ownerAction, opponentAction simulator.PlayerAction) (simulator.PlayerAction, simulator.PlayerAction) {
	if t.owner == 1 {
		return ownerAction, opponentAction
	}
	return opponentAction, ownerAction
}

// rollout plays leafIdx's state forward with a fast stochastic policy for
// both sides, then scores the resulting state with the evaluation function,
// discounted by elapsed lookahead ticks.
func (t *Tree) rollout(leafIdx int) float64 {
	state := t.nodes[leafIdx].state.Clone()
	ticks := 0
	for ticks < t.rolloutLookahead && !state.Terminal() {
		ownerLegal := state.LegalActions(t.owner)
		oppLegal := state.LegalActions(t.opponent)
		ownerAction, _ := t.sampleJointAction(state, groupByUnit(ownerLegal))
		oppAction, _ := t.sampleJointAction(state, groupByUnit(oppLegal))
		p0, p1 := t.placeActions(ownerAction, oppAction)
		state = state.Advance(p0, p1)
		ticks++
	}

	value := evaluation.Evaluate(state, t.owner, t.opponent, t.currentGoals())
	discount := math.Pow(t.discount, float64(ticks)/10.0)
	return value * discount
}

// backup propagates reward up path, updating each traversed node's visit
// count and the edge that led into each of its children.
func (t *Tree) backup(path []int, reward float64) {
	for i, idx := range path {
		n := t.nodes[idx]
		n.visits++
		if i == 0 {
			continue
		}
		parent := t.nodes[path[i-1]]
		for _, e := range parent.edges {
			if e.child == idx {
				e.visits++
				e.totalEval += reward
				break
			}
		}
	}
}

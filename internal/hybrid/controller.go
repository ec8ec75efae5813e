package hybrid

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/signalnine/arena/internal/evaluation"
	"github.com/signalnine/arena/internal/llm"
	"github.com/signalnine/arena/internal/simulator"
)

const (
	defaultBaseInterval   = 200
	defaultCombatInterval = 100
	combatDetectRange     = 5

	defaultAggression      = 0.5
	defaultEconomyPriority = 0.5
	defaultRetreatThresh   = 0.3
)

var strengthWeight = map[simulator.UnitKind]int{
	simulator.UnitHarvester: 1,
	simulator.UnitLight:     2,
	simulator.UnitHeavy:     4,
	simulator.UnitRanged:    2,
}

var nameFromWire = map[string]Name{
	"WORKER_RUSH":    WorkerRush,
	"LIGHT_RUSH":     LightRush,
	"HEAVY_RUSH":     HeavyRush,
	"RANGED_RUSH":    RangedRush,
	"TURTLE":         TurtleDefense,
	"BOOM":           BoomEconomy,
	"COUNTER_ATTACK": CounterAttack,
	"HARASS":         Harass,
}

// Controller is the C7 hybrid FSM agent: it runs strategies[current] every
// tick and periodically asks an LLM whether to switch strategy or retune its
// tactical scalars.
type Controller struct {
	strategies map[Name]Strategy
	current    Name

	client *llm.Client
	model  string
	log    zerolog.Logger

	baseInterval   int
	combatInterval int
	lastConsult    int

	aggression      float64
	economyPriority float64
	retreatThresh   float64
	target          evaluation.TargetPriority

	inCombat        bool
	strategyChanges int
	consultations   int
	errors          int
}

// Option configures a Controller at construction time.
type Option func(*Controller)

func WithIntervals(base, combat int) Option {
	return func(c *Controller) { c.baseInterval, c.combatInterval = base, combat }
}

func WithInitialStrategy(name Name) Option {
	return func(c *Controller) { c.current = name }
}

func WithRetreatThreshold(v float64) Option {
	return func(c *Controller) { c.retreatThresh = v }
}

// NewController builds a Controller. client may be nil, in which case the
// agent never consults the LLM; the retreat override still switches it to
// counter-attack when it is outmatched in combat.
func NewController(client *llm.Client, model string, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		strategies:      defaultStrategies(),
		current:         LightRush,
		client:          client,
		model:           model,
		log:             log,
		baseInterval:    defaultBaseInterval,
		combatInterval:  defaultCombatInterval,
		lastConsult:     -defaultBaseInterval,
		aggression:      defaultAggression,
		economyPriority: defaultEconomyPriority,
		retreatThresh:   defaultRetreatThresh,
		target:          evaluation.TargetBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentStrategy reports the FSM's active behavior, for tests and
// reporting.
func (c *Controller) CurrentStrategy() Name { return c.current }

// Stats summarizes consultation activity, mirroring the counters the
// teacher's llm.Client.Stats exposes.
func (c *Controller) Stats() string {
	return fmt.Sprintf("changes=%d consultations=%d errors=%d", c.strategyChanges, c.consultations, c.errors)
}

// Act runs one tick of the FSM: refresh combat detection, consult the LLM if
// due, apply the retreat override, then delegate to the current strategy.
func (c *Controller) Act(ctx context.Context, state simulator.GameState, owner, opponent, tick int) simulator.PlayerAction {
	c.inCombat = detectCombat(state, owner, opponent)
	interval := c.baseInterval
	if c.inCombat {
		interval = c.combatInterval
	}

	if c.client != nil && tick-c.lastConsult >= interval {
		c.consult(ctx, state, owner, opponent, tick)
		c.lastConsult = tick
	}

	if c.shouldRetreat(state, owner, opponent) {
		if c.current != CounterAttack {
			c.switchStrategy(CounterAttack, tick, "strength ratio below retreat threshold")
		}
	}

	return c.strategies[c.current].Act(state, owner)
}

func detectCombat(state simulator.GameState, owner, opponent int) bool {
	for _, u := range state.UnitsOf(owner) {
		if u.AttackRange <= 0 {
			continue
		}
		for _, e := range state.UnitsOf(opponent) {
			if u.Pos.Manhattan(e.Pos) <= combatDetectRange {
				return true
			}
		}
	}
	return false
}

func (c *Controller) shouldRetreat(state simulator.GameState, owner, opponent int) bool {
	if c.retreatThresh <= 0 || !c.inCombat {
		return false
	}
	mine := strength(state, owner)
	theirs := strength(state, opponent)
	if theirs == 0 {
		return false
	}
	return float64(mine)/float64(theirs) < c.retreatThresh
}

func strength(state simulator.GameState, owner int) int {
	total := 0
	for _, u := range state.UnitsOf(owner) {
		total += strengthWeight[u.Kind]
	}
	return total
}

func (c *Controller) switchStrategy(name Name, tick int, reasoning string) {
	c.log.Info().
		Str("from", string(c.current)).
		Str("to", string(name)).
		Int("tick", tick).
		Str("reasoning", reasoning).
		Msg("hybrid strategy switch")
	c.strategies[c.current].Reset()
	c.current = name
	c.strategyChanges++
}

func (c *Controller) consult(ctx context.Context, state simulator.GameState, owner, opponent, tick int) {
	c.consultations++
	text, err := c.client.Generate(ctx, c.strategicPrompt(state, owner, opponent, tick), llm.Options{Model: c.model})
	if err != nil {
		c.errors++
		c.log.Debug().Err(err).Msg("hybrid consultation failed, keeping current strategy")
		return
	}

	var parsed struct {
		Strategy        string  `json:"strategy"`
		Aggression      float64 `json:"aggression"`
		EconomyPriority float64 `json:"economy_priority"`
		RetreatThresh   float64 `json:"retreat_threshold"`
		Target          string  `json:"primary_target"`
		Reasoning       string  `json:"reasoning"`
	}
	if err := llm.ExtractJSON(text, &parsed); err != nil {
		c.errors++
		c.log.Warn().Err(err).Msg("hybrid consultation returned unparseable JSON")
		return
	}

	if name, ok := nameFromWire[parsed.Strategy]; ok && name != c.current {
		c.switchStrategy(name, tick, parsed.Reasoning)
	}
	if parsed.Aggression != 0 {
		c.aggression = clamp01(parsed.Aggression)
	}
	if parsed.EconomyPriority != 0 {
		c.economyPriority = clamp01(parsed.EconomyPriority)
	}
	if parsed.RetreatThresh != 0 {
		c.retreatThresh = clamp01(parsed.RetreatThresh)
	}
	switch parsed.Target {
	case "BASE":
		c.target = evaluation.TargetBase
	case "WORKERS":
		c.target = evaluation.TargetWorkers
	case "ARMY":
		c.target = evaluation.TargetArmy
	}
}

func (c *Controller) strategicPrompt(state simulator.GameState, owner, opponent, tick int) string {
	return "Report the RTS game state and choose one of WORKER_RUSH, LIGHT_RUSH, HEAVY_RUSH, " +
		"RANGED_RUSH, TURTLE, BOOM, COUNTER_ATTACK, HARASS plus aggression, economy_priority, " +
		"retreat_threshold, primary_target, and a short reasoning string as a JSON object."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

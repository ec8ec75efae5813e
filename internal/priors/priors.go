package priors

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/signalnine/arena/internal/llm"
	"github.com/signalnine/arena/internal/simulator"
)

// ActionWeights maps an action kind to its relative weight before
// normalization.
type ActionWeights map[simulator.ActionKind]float64

const unknownActionWeight = 0.1

// defaultTable is the built-in per-situation prior, grounded on
// LLMPolicyProbabilityDistribution.java's DEFAULT_PRIORS.
func defaultTable() map[Situation]ActionWeights {
	return map[Situation]ActionWeights{
		WorkerNearResource:  {simulator.ActionHarvest: 0.7, simulator.ActionMove: 0.2, simulator.ActionNone: 0.1},
		WorkerIdle:          {simulator.ActionMove: 0.6, simulator.ActionHarvest: 0.2, simulator.ActionNone: 0.2},
		WorkerCarrying:      {simulator.ActionReturn: 0.8, simulator.ActionMove: 0.2},
		MilitaryInCombat:    {simulator.ActionAttack: 0.75, simulator.ActionMove: 0.2, simulator.ActionNone: 0.05},
		MilitaryNotInCombat: {simulator.ActionMove: 0.7, simulator.ActionAttack: 0.1, simulator.ActionNone: 0.2},
		BaseEconomy:         {simulator.ActionProduce: 0.6, simulator.ActionNone: 0.4},
		BaseLowResources:    {simulator.ActionNone: 0.8, simulator.ActionProduce: 0.2},
		Barracks:            {simulator.ActionProduce: 0.7, simulator.ActionNone: 0.3},
	}
}

// Positional multipliers, grounded on the Java original's adjustment table.
const (
	moveTowardEnemyMultiplier    = 1.5
	moveTowardResourceMultiplier = 1.5
	attackStockpileMultiplier    = 2.0
	attackHarvesterMultiplier    = 1.5
	produceHarvesterMultiplier   = 1.2
	produceCombatMultiplier      = 1.3
)

// Cache is the per-agent policy prior cache: a table, refreshed from an LLM
// on a fixed tick cadence, plus positional adjustments applied at query
// time.
type Cache struct {
	client       *llm.Client
	log          zerolog.Logger
	refreshTicks int

	mu            sync.Mutex
	table         map[Situation]ActionWeights
	lastRefresh   int
	refreshes     int
	refreshErrors int
}

// Stats summarizes refresh activity, mirroring the counters the teacher's
// llm.Client.Stats exposes.
func (c *Cache) Stats() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("refreshes=%d errors=%d last_refresh_tick=%d", c.refreshes, c.refreshErrors, c.lastRefresh)
}

// NewCache builds a Cache seeded with the built-in defaults.
func NewCache(client *llm.Client, refreshTicks int, log zerolog.Logger) *Cache {
	if refreshTicks <= 0 {
		refreshTicks = 300
	}
	return &Cache{
		client:       client,
		log:          log,
		refreshTicks: refreshTicks,
		table:        defaultTable(),
		lastRefresh:  -refreshTicks, // force a refresh attempt on first call
	}
}

// MaybeRefresh calls the LLM for an updated prior table if refreshTicks
// have elapsed since the last attempt. On any failure the existing table is
// left unchanged.
func (c *Cache) MaybeRefresh(ctx context.Context, tick int, model string) {
	c.mu.Lock()
	due := tick-c.lastRefresh >= c.refreshTicks
	c.mu.Unlock()
	if !due || c.client == nil {
		return
	}

	c.mu.Lock()
	c.lastRefresh = tick
	c.mu.Unlock()

	text, err := c.client.Generate(ctx, priorRefreshPrompt(), llm.Options{Model: model})
	if err != nil {
		c.mu.Lock()
		c.refreshErrors++
		c.mu.Unlock()
		c.log.Debug().Err(err).Msg("prior refresh failed, keeping cached table")
		return
	}

	var parsed map[Situation]map[string]float64
	if err := llm.ExtractJSON(text, &parsed); err != nil {
		c.mu.Lock()
		c.refreshErrors++
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("prior refresh returned unparseable JSON")
		return
	}

	table := make(map[Situation]ActionWeights, len(parsed))
	for situation, weights := range parsed {
		aw := make(ActionWeights, len(weights))
		for kindName, w := range weights {
			kind, ok := actionKindByName[kindName]
			if !ok {
				continue
			}
			aw[kind] = w
		}
		if len(aw) > 0 {
			table[situation] = aw
		}
	}
	if len(table) == 0 {
		return
	}

	c.mu.Lock()
	c.table = table
	c.refreshes++
	c.mu.Unlock()
}

var actionKindByName = map[string]simulator.ActionKind{
	"none":    simulator.ActionNone,
	"move":    simulator.ActionMove,
	"harvest": simulator.ActionHarvest,
	"return":  simulator.ActionReturn,
	"produce": simulator.ActionProduce,
	"attack":  simulator.ActionAttack,
}

func priorRefreshPrompt() string {
	return "Return a JSON object mapping each unit situation to an object of action-kind weights."
}

// Distribution returns a normalized probability for each legal action of
// unit u, applying positional adjustments on top of the situation's base
// weights. Returns an empty map if u has no legal actions.
func (c *Cache) Distribution(u simulator.Unit, state simulator.GameState, legal []simulator.Action) map[simulator.Action]float64 {
	if len(legal) == 0 {
		return map[simulator.Action]float64{}
	}

	situation := Classify(u, state)
	c.mu.Lock()
	weights := c.table[situation]
	c.mu.Unlock()

	raw := make(map[simulator.Action]float64, len(legal))
	var total float64
	for _, a := range legal {
		w, ok := weights[a.Kind]
		if !ok {
			w = unknownActionWeight
		}
		w *= positionalMultiplier(u, a, state, situation)
		raw[a] = w
		total += w
	}

	if total <= 0 {
		uniform := 1.0 / float64(len(legal))
		for _, a := range legal {
			raw[a] = uniform
		}
		return raw
	}

	for a, w := range raw {
		raw[a] = w / total
	}
	return raw
}

func positionalMultiplier(u simulator.Unit, a simulator.Action, state simulator.GameState, situation Situation) float64 {
	switch {
	case situation == MilitaryNotInCombat && a.Kind == simulator.ActionMove:
		if enemy, ok := state.NearestEnemy(u.Owner, u.Pos); ok && movesToward(u.Pos, a.Target, enemy.Pos) {
			return moveTowardEnemyMultiplier
		}
	case situation == WorkerIdle && a.Kind == simulator.ActionMove:
		if res, ok := state.NearestResource(u.Pos); ok && movesToward(u.Pos, a.Target, res) {
			return moveTowardResourceMultiplier
		}
	case a.Kind == simulator.ActionAttack:
		return attackTargetMultiplier(a.Target, state)
	case a.Kind == simulator.ActionProduce && situation == BaseEconomy:
		return produceHarvesterMultiplier
	case a.Kind == simulator.ActionProduce && situation == Barracks:
		return produceCombatMultiplier
	}
	return 1.0
}

func attackTargetMultiplier(target simulator.Point, state simulator.GameState) float64 {
	for _, u := range state.Units() {
		if u.Pos != target {
			continue
		}
		switch u.Kind {
		case simulator.UnitBase, simulator.UnitBarracks:
			return attackStockpileMultiplier
		case simulator.UnitHarvester:
			return attackHarvesterMultiplier
		}
	}
	return 1.0
}

func movesToward(from, to, goal simulator.Point) bool {
	return from.Manhattan(goal) > to.Manhattan(goal)
}

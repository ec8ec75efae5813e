package hybrid_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/arena/internal/hybrid"
	"github.com/signalnine/arena/internal/llm"
	"github.com/signalnine/arena/internal/logging"
	"github.com/signalnine/arena/internal/simulator"
)

func combatState() *simulator.FakeState {
	s := simulator.NewFakeState(1000)
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	s.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase, HP: 100, MaxHP: 100})
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitLight, HP: 10, MaxHP: 10, AttackRange: 1, Pos: simulator.Point{X: 0, Y: 0}})
	s.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitHeavy, HP: 40, MaxHP: 40, AttackRange: 1, Pos: simulator.Point{X: 1, Y: 0}})
	return s
}

func TestActWithNoClientKeepsInitialStrategy(t *testing.T) {
	ctrl := hybrid.NewController(nil, "", logging.Nop(), hybrid.WithInitialStrategy(hybrid.WorkerRush))
	_ = ctrl.Act(context.Background(), combatState(), 1, 2, 0)
	assert.Equal(t, hybrid.WorkerRush, ctrl.CurrentStrategy())
}

func TestActRetreatsWhenOutmatchedInCombat(t *testing.T) {
	ctrl := hybrid.NewController(nil, "", logging.Nop(),
		hybrid.WithInitialStrategy(hybrid.LightRush),
		hybrid.WithRetreatThreshold(0.9))

	ctrl.Act(context.Background(), combatState(), 1, 2, 0)

	assert.Equal(t, hybrid.CounterAttack, ctrl.CurrentStrategy())
}

func TestActSwitchesStrategyFromLLMResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"response": `{"strategy":"HEAVY_RUSH","aggression":0.8}`,
		})
	}))
	defer server.Close()

	client := llm.NewLocal(server.URL, 3, logging.Nop())
	ctrl := hybrid.NewController(client, "test-model", logging.Nop(),
		hybrid.WithInitialStrategy(hybrid.WorkerRush),
		hybrid.WithIntervals(1, 1))

	state := simulator.NewFakeState(1000)
	state.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase})
	state.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase})

	ctrl.Act(context.Background(), state, 1, 2, 0)

	require.Equal(t, hybrid.HeavyRush, ctrl.CurrentStrategy())
	assert.Contains(t, ctrl.Stats(), "consultations=1")
}

func TestActKeepsStrategyOnLLMFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := llm.NewLocal(server.URL, 3, logging.Nop())
	ctrl := hybrid.NewController(client, "test-model", logging.Nop(),
		hybrid.WithInitialStrategy(hybrid.WorkerRush),
		hybrid.WithIntervals(1, 1))

	state := simulator.NewFakeState(1000)
	state.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase})
	state.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase})

	ctrl.Act(context.Background(), state, 1, 2, 0)

	assert.Equal(t, hybrid.WorkerRush, ctrl.CurrentStrategy())
	assert.Contains(t, ctrl.Stats(), "errors=1")
}

func TestActProducesOneActionPerUnitWithLegalMoves(t *testing.T) {
	s := simulator.NewFakeState(1000)
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitHarvester})
	s.AddUnit(simulator.Unit{Owner: 1, Kind: simulator.UnitBase})
	s.AddUnit(simulator.Unit{Owner: 2, Kind: simulator.UnitBase})

	ctrl := hybrid.NewController(nil, "", logging.Nop(), hybrid.WithInitialStrategy(hybrid.LightRush))
	pa := ctrl.Act(context.Background(), s, 1, 2, 0)

	assert.Len(t, pa.Actions, 2)
}

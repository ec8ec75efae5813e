package matchup_test

import (
	"testing"

	"github.com/signalnine/arena/internal/matchup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreOutcome(t *testing.T) {
	cases := []struct {
		name    string
		outcome matchup.GameOutcome
		tickCap int
		weight  float64
		want    float64
	}{
		{"fast win", matchup.GameOutcome{Result: matchup.ResultWin, Ticks: 100}, 1000, 10, 12.0},
		{"slow win", matchup.GameOutcome{Result: matchup.ResultWin, Ticks: 900}, 1000, 10, 10.0},
		{"medium win", matchup.GameOutcome{Result: matchup.ResultWin, Ticks: 600}, 1000, 10, 11.0},
		{"draw", matchup.GameOutcome{Result: matchup.ResultDraw, Ticks: 1000}, 1000, 10, 5.0},
		{"loss", matchup.GameOutcome{Result: matchup.ResultLoss, Ticks: 500}, 1000, 10, 0.0},
		{"timeout", matchup.GameOutcome{Result: matchup.ResultTimeout, Ticks: 1000}, 1000, 10, 0.0},
		{"crash", matchup.GameOutcome{Result: matchup.ResultCrash, Ticks: 3}, 1000, 10, 0.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := matchup.ScoreOutcome(c.outcome, c.tickCap, c.weight)
			assert.InDelta(t, c.want, got.WeightedPoints, 1e-9)
		})
	}
}

func TestGradeBand(t *testing.T) {
	cases := map[float64]string{
		95: "A+", 90: "A+", 85: "A", 80: "A", 75: "B", 70: "B",
		65: "C", 60: "C", 45: "D", 40: "D", 10: "F", 0: "F",
	}
	for score, want := range cases {
		require.Equal(t, want, matchup.GradeBand(score))
	}
}

func TestRunLadderClearsAllOnWins(t *testing.T) {
	ladder := matchup.DefaultLadder()
	outcomes := map[string][]matchup.GameOutcome{}
	for _, opp := range ladder {
		outcomes[opp.Name] = []matchup.GameOutcome{{Result: matchup.ResultWin, Ticks: 100}}
	}

	entry := matchup.RunLadder("agent-a", "mcts", ladder, 1000, outcomes)

	require.Equal(t, "cleared all", entry.EliminatedAt)
	require.Len(t, entry.Opponents, len(ladder))
	assert.Greater(t, entry.Score, 0.0)
}

func TestRunLadderStopsAtFirstNonWin(t *testing.T) {
	ladder := matchup.DefaultLadder()
	outcomes := map[string][]matchup.GameOutcome{
		ladder[0].Name: {{Result: matchup.ResultWin, Ticks: 100}},
		ladder[1].Name: {{Result: matchup.ResultLoss, Ticks: 500}},
		ladder[2].Name: {{Result: matchup.ResultWin, Ticks: 100}}, // must not be reached
	}

	entry := matchup.RunLadder("agent-b", "hybrid", ladder, 1000, outcomes)

	require.Equal(t, ladder[1].Name, entry.EliminatedAt)
	require.Len(t, entry.Opponents, 2)
	_, playedThird := entry.Opponents[ladder[2].Name]
	require.False(t, playedThird)
}

func TestRunLadderMajorityWinAcrossGames(t *testing.T) {
	ladder := matchup.DefaultLadder()[:1]
	outcomes := map[string][]matchup.GameOutcome{
		ladder[0].Name: {
			{Result: matchup.ResultWin, Ticks: 100},
			{Result: matchup.ResultWin, Ticks: 100},
			{Result: matchup.ResultLoss, Ticks: 900},
		},
	}
	entry := matchup.RunLadder("agent-c", "hybrid", ladder, 1000, outcomes)
	require.Equal(t, "cleared all", entry.EliminatedAt)
	rec := entry.Opponents[ladder[0].Name]
	require.Equal(t, 2, rec.Wins)
	require.Equal(t, 1, rec.Losses)
}

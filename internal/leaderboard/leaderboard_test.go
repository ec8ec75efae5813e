package leaderboard_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/arena/internal/leaderboard"
	"github.com/signalnine/arena/internal/matchup"
	"github.com/signalnine/arena/internal/result"
)

func writeRun(t *testing.T, resultsDir string, run *matchup.BenchmarkRun) {
	t.Helper()
	runDir, err := result.CreateRunDir(resultsDir)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if err := result.WriteBenchmarkRun(runDir, run); err != nil {
		t.Fatalf("WriteBenchmarkRun: %v", err)
	}
}

func TestLoadCollectsEntriesAcrossRuns(t *testing.T) {
	resultsDir := t.TempDir()
	writeRun(t, resultsDir, &matchup.BenchmarkRun{
		ArenaVersion: "v1",
		Entries: []matchup.AgentEntry{
			{DisplayName: "agent-a", Score: 40, Grade: "D"},
		},
	})
	writeRun(t, resultsDir, &matchup.BenchmarkRun{
		ArenaVersion: "v1",
		Entries: []matchup.AgentEntry{
			{DisplayName: "agent-a", Score: 70, Grade: "B"},
			{DisplayName: "agent-b", Score: 55, Grade: "D"},
		},
	})

	entries, err := leaderboard.Load(resultsDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries across both runs, got %d", len(entries))
	}
}

// findBest returns the entry in best (keyed by display name) matching name, for
// tests that don't have access to the package's unexported map key type.
func findBest(t *testing.T, best map[string]leaderboard.Entry, name string) leaderboard.Entry {
	t.Helper()
	e, ok := best[name]
	if !ok {
		t.Fatalf("no best entry for %s", name)
	}
	return e
}

// keyedBest re-indexes BestPerAgent's result by DisplayName alone, for
// tests that only ever have one architecture per display name.
func keyedBest(entries []leaderboard.Entry) map[string]leaderboard.Entry {
	out := make(map[string]leaderboard.Entry)
	for _, e := range leaderboard.BestPerAgent(entries) {
		out[e.DisplayName] = e
	}
	return out
}

func TestBestPerAgentPicksHighestScore(t *testing.T) {
	entries := []leaderboard.Entry{
		{DisplayName: "agent-a", Score: 40},
		{DisplayName: "agent-a", Score: 70},
		{DisplayName: "agent-b", Score: 55},
	}
	best := leaderboard.BestPerAgent(entries)
	if len(best) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(best))
	}
	if findBest(t, keyedBest(entries), "agent-a").Score != 70 {
		t.Errorf("expected agent-a best score 70, got %v", keyedBest(entries)["agent-a"].Score)
	}
}

func TestBestPerAgentKeepsBothArchitecturesForSameDisplayName(t *testing.T) {
	entries := []leaderboard.Entry{
		{DisplayName: "agent-a", Architecture: "mcts", Score: 70},
		{DisplayName: "agent-a", Architecture: "hybrid", Score: 55},
	}
	best := leaderboard.BestPerAgent(entries)
	if len(best) != 2 {
		t.Fatalf("expected the two architectures to be kept as distinct agents, got %d", len(best))
	}
}

func TestBestPerAgentTieBreaksOnMostRecentGenerated(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := []leaderboard.Entry{
		{DisplayName: "agent-a", Score: 70, ArenaVersion: "v2", Generated: older},
		{DisplayName: "agent-a", Score: 70, ArenaVersion: "v1", Generated: newer},
	}
	best := findBest(t, keyedBest(entries), "agent-a")
	if !best.Generated.Equal(newer) {
		t.Errorf("expected the more recently generated entry to win the tie, got %v", best.Generated)
	}
}

func TestGenerateWritesJSONAndMarkdown(t *testing.T) {
	resultsDir := t.TempDir()
	writeRun(t, resultsDir, &matchup.BenchmarkRun{
		ArenaVersion: "v2",
		Format:       "single-elimination-ladder",
		Map:          "basesWorkers8x8",
		Entries: []matchup.AgentEntry{
			{
				DisplayName:  "mcts-agent",
				Score:        82.5,
				Grade:        "A",
				EliminatedAt: "cleared all",
				Opponents: map[string]matchup.OpponentRecord{
					"RandomBiasedAI": {Wins: 1},
				},
			},
		},
	})

	best, err := leaderboard.Generate(resultsDir)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(best) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(best))
	}

	if _, err := os.Stat(filepath.Join(resultsDir, "leaderboard.json")); err != nil {
		t.Errorf("expected leaderboard.json: %v", err)
	}
	if _, err := os.Stat(filepath.Join(resultsDir, "LEADERBOARD.md")); err != nil {
		t.Errorf("expected LEADERBOARD.md: %v", err)
	}
}

func TestGenerateWithNoRunsProducesNoFiles(t *testing.T) {
	resultsDir := t.TempDir()
	best, err := leaderboard.Generate(resultsDir)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(best) != 0 {
		t.Errorf("expected no entries, got %d", len(best))
	}
	if _, err := os.Stat(filepath.Join(resultsDir, "leaderboard.json")); !os.IsNotExist(err) {
		t.Errorf("expected no leaderboard.json, stat err = %v", err)
	}
}

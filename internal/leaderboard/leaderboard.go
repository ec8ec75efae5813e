// Package leaderboard consolidates every recorded BenchmarkRun under a
// results directory into one best-score-per-agent leaderboard, grounded on
// original_source/generate_leaderboard.py's load/find-best/render pipeline.
// Where the Python script globs benchmark_*.json files directly, this walks
// resultsDir/runs/*/benchmark.json as written by result.WriteBenchmarkRun.
package leaderboard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/signalnine/arena/internal/matchup"
	"github.com/signalnine/arena/internal/result"
)

// Entry is one agent's best recorded run, enriched with the run it came
// from so the rendered leaderboard can cite a source file the way the
// Python generator's source_file column does.
type Entry struct {
	DisplayName     string                           `json:"model"`
	Architecture    string                            `json:"architecture"`
	Score           float64                           `json:"score"`
	Grade           string                            `json:"grade"`
	ArenaVersion    string                            `json:"version"`
	Format          string                            `json:"format"`
	EliminatedAt    string                            `json:"eliminated_at,omitempty"`
	Generated       time.Time                         `json:"date"`
	Map             string                            `json:"map"`
	GamesPerMatchup int                               `json:"games_per_matchup"`
	Opponents       map[string]matchup.OpponentRecord `json:"opponents"`
	SourceFile      string                            `json:"source_file"`
}

// Load walks resultsDir/runs/*/benchmark.json and returns one Entry per
// AgentEntry found, across every run file. A run file that fails to parse
// is skipped rather than aborting the whole load, mirroring the Python
// script's "skipping <file>: <err>" behavior.
func Load(resultsDir string) ([]Entry, error) {
	pattern := filepath.Join(resultsDir, "runs", "*", "benchmark.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pattern, err)
	}
	sort.Strings(files)

	var entries []Entry
	for _, f := range files {
		run, err := result.ReadBenchmarkRun(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", f, err)
			continue
		}
		rel := filepath.Base(filepath.Dir(f))
		for _, a := range run.Entries {
			entries = append(entries, Entry{
				DisplayName:     a.DisplayName,
				Architecture:    a.AgentArchitecture,
				Score:           a.Score,
				Grade:           a.Grade,
				ArenaVersion:    run.ArenaVersion,
				Format:          run.Format,
				EliminatedAt:    a.EliminatedAt,
				Generated:       run.Generated,
				Map:             run.Map,
				GamesPerMatchup: run.GamesPerMatchup,
				Opponents:       a.Opponents,
				SourceFile:      rel,
			})
		}
	}
	return entries, nil
}

// agentKey is the dedup identity for a leaderboard entry: the same display
// name under two different architectures is two agents, not one.
type agentKey struct {
	DisplayName  string
	Architecture string
}

// BestPerAgent reduces entries to the single best result per
// (DisplayName, Architecture). Ties prefer the more recently generated run,
// exactly as find_best_per_model does.
func BestPerAgent(entries []Entry) map[agentKey]Entry {
	best := make(map[agentKey]Entry)
	for _, e := range entries {
		key := agentKey{DisplayName: e.DisplayName, Architecture: e.Architecture}
		prev, ok := best[key]
		if !ok || better(e, prev) {
			best[key] = e
		}
	}
	return best
}

func better(candidate, current Entry) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return candidate.Generated.After(current.Generated)
}

// sortedByScore returns best's values ranked highest score first, equal
// scores ordered by display name ascending.
func sortedByScore(best map[agentKey]Entry) []Entry {
	out := make([]Entry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// leaderboardDoc is the shape written to leaderboard.json.
type leaderboardDoc struct {
	Generated   time.Time `json:"generated"`
	Description string    `json:"description"`
	Entries     []Entry   `json:"entries"`
}

// WriteJSON renders best to resultsDir/leaderboard.json.
func WriteJSON(resultsDir string, best map[agentKey]Entry) error {
	doc := leaderboardDoc{
		Generated:   time.Now().UTC(),
		Description: "Best benchmark score per agent across all runs",
		Entries:     sortedByScore(best),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling leaderboard: %w", err)
	}
	return os.WriteFile(filepath.Join(resultsDir, "leaderboard.json"), data, 0o644)
}

// WriteMarkdown renders best to resultsDir/LEADERBOARD.md: a rankings table
// with one column per opponent encountered, followed by a per-agent detail
// card and the grade scale, mirroring generate_leaderboard_markdown.
func WriteMarkdown(resultsDir string, best map[agentKey]Entry) error {
	ranked := sortedByScore(best)

	var opponents []string
	seen := map[string]bool{}
	for _, e := range ranked {
		for name := range e.Opponents {
			if !seen[name] {
				seen[name] = true
				opponents = append(opponents, name)
			}
		}
	}
	sort.Strings(opponents)

	var b strings.Builder
	fmt.Fprintln(&b, "# Arena Leaderboard")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Best benchmark score per agent across all runs.")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "*Generated: %s*\n\n", time.Now().UTC().Format("2006-01-02 15:04"))

	fmt.Fprintln(&b, "## Rankings")
	fmt.Fprintln(&b)
	header := "| Rank | Agent | Score | Grade | Eliminated at |"
	sep := "|------|-------|-------|-------|---------------|"
	for _, opp := range opponents {
		header += " " + opp + " |"
		sep += "------|"
	}
	fmt.Fprintln(&b, header)
	fmt.Fprintln(&b, sep)

	for i, e := range ranked {
		elim := e.EliminatedAt
		if elim == "" {
			elim = "cleared all"
		}
		row := fmt.Sprintf("| %d | %s | **%.1f** | %s | %s |", i+1, e.DisplayName, e.Score, e.Grade, elim)
		pastElimination := false
		for _, opp := range opponents {
			if pastElimination {
				row += " -- |"
				continue
			}
			rec, ok := e.Opponents[opp]
			if !ok {
				row += " - |"
				continue
			}
			row += fmt.Sprintf(" %dW/%dD/%dL |", rec.Wins, rec.Draws, rec.Losses)
			if e.Format == "single-elimination-ladder" && rec.Wins == 0 {
				pastElimination = true
			}
		}
		fmt.Fprintln(&b, row)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "---")
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Detailed Breakdown")
	fmt.Fprintln(&b)
	for _, e := range ranked {
		elim := "cleared all"
		if e.EliminatedAt != "" {
			elim = "eliminated at " + e.EliminatedAt
		}
		fmt.Fprintf(&b, "### %s - %.1f pts (%s -- %s)\n\n", e.DisplayName, e.Score, e.Grade, elim)
		fmt.Fprintf(&b, "- **Architecture:** %s\n", e.Architecture)
		fmt.Fprintf(&b, "- **Arena version:** %s\n", e.ArenaVersion)
		fmt.Fprintf(&b, "- **Format:** %s\n", e.Format)
		fmt.Fprintf(&b, "- **Map:** `%s`\n", e.Map)
		fmt.Fprintf(&b, "- **Games per matchup:** %d\n", e.GamesPerMatchup)
		fmt.Fprintf(&b, "- **Source:** `%s`\n\n", e.SourceFile)

		if len(e.Opponents) > 0 {
			fmt.Fprintln(&b, "| Opponent | W | D | L | Weighted Pts |")
			fmt.Fprintln(&b, "|----------|---|---|---|-------------|")
			names := make([]string, 0, len(e.Opponents))
			for name := range e.Opponents {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				rec := e.Opponents[name]
				fmt.Fprintf(&b, "| %s | %d | %d | %d | %.1f |\n", name, rec.Wins, rec.Draws, rec.Losses, rec.WeightedPoints)
			}
			fmt.Fprintln(&b)
		}
	}

	fmt.Fprintln(&b, "---")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "## Grade Scale")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Grade | Score Range | Description |")
	fmt.Fprintln(&b, "|-------|-------------|-------------|")
	fmt.Fprintln(&b, "| A+ | 90-100 | Excellent - beats hard AIs consistently |")
	fmt.Fprintln(&b, "| A | 80-89 | Very Good - competes with hard AIs |")
	fmt.Fprintln(&b, "| B | 70-79 | Good - beats medium, challenges hard |")
	fmt.Fprintln(&b, "| C | 60-69 | Average - beats easy and some medium |")
	fmt.Fprintln(&b, "| D | 40-59 | Below Average - draws common |")
	fmt.Fprintln(&b, "| F | 0-39 | Failing - losses/timeouts |")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Scores from different arena versions are not directly comparable: opponent sets, weights, and formats can all change between versions.")
	fmt.Fprintln(&b)

	return os.WriteFile(filepath.Join(resultsDir, "LEADERBOARD.md"), []byte(b.String()), 0o644)
}

// Generate runs the full Load -> BestPerAgent -> write pipeline.
func Generate(resultsDir string) (map[agentKey]Entry, error) {
	entries, err := Load(resultsDir)
	if err != nil {
		return nil, err
	}
	best := BestPerAgent(entries)
	if len(best) == 0 {
		return best, nil
	}
	if err := WriteJSON(resultsDir, best); err != nil {
		return nil, fmt.Errorf("writing leaderboard.json: %w", err)
	}
	if err := WriteMarkdown(resultsDir, best); err != nil {
		return nil, fmt.Errorf("writing LEADERBOARD.md: %w", err)
	}
	return best, nil
}

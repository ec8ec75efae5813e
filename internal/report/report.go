// Package report renders a BenchmarkRun as a human- or machine-readable
// summary, in the Generate/writeTable/writeMarkdown/writeJSON family over
// text/tabwriter. This domain has no USD-cost concept, so there is no
// pricing column.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/arena/internal/matchup"
	"github.com/signalnine/arena/internal/result"
)

// AgentSummary is one row of the rendered report.
type AgentSummary struct {
	Name             string  `json:"name"`
	Architecture     string  `json:"architecture"`
	Score            float64 `json:"score"`
	Grade            string  `json:"grade"`
	OpponentsCleared int     `json:"opponents_cleared"`
	EliminatedAt     string  `json:"eliminated_at"`
}

// Generate reads runDir/benchmark.json and writes a summary in the
// requested format ("table" (default), "markdown", or "json").
func Generate(runDir, format string, w io.Writer) error {
	run, err := result.ReadBenchmarkRun(filepath.Join(runDir, "benchmark.json"))
	if err != nil {
		return err
	}

	summaries := summarize(run)

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func summarize(run *matchup.BenchmarkRun) []AgentSummary {
	summaries := make([]AgentSummary, 0, len(run.Entries))
	for _, e := range run.Entries {
		cleared := 0
		for _, rec := range e.Opponents {
			if rec.Wins*2 > rec.Wins+rec.Draws+rec.Losses {
				cleared++
			}
		}
		summaries = append(summaries, AgentSummary{
			Name:             e.DisplayName,
			Architecture:     e.AgentArchitecture,
			Score:            e.Score,
			Grade:            e.Grade,
			OpponentsCleared: cleared,
			EliminatedAt:     e.EliminatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Score > summaries[j].Score
	})
	return summaries
}

func writeTable(summaries []AgentSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tARCHITECTURE\tSCORE\tGRADE\tCLEARED\tELIMINATED AT")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%d\t%s\n",
			s.Name, s.Architecture, s.Score, s.Grade, s.OpponentsCleared, s.EliminatedAt)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []AgentSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Agent | Architecture | Score | Grade | Cleared | Eliminated At |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %.1f | %s | %d | %s |\n",
			s.Name, s.Architecture, s.Score, s.Grade, s.OpponentsCleared, s.EliminatedAt)
	}
	return nil
}

func writeJSON(summaries []AgentSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

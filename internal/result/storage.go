// Package result persists BenchmarkRun artifacts to disk: a timestamped run
// directory with a "latest" symlink, one atomically-written outcome file
// per completed matchup so an interrupted run can resume without repeating
// finished games, and the final aggregated BenchmarkRun.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signalnine/arena/internal/matchup"
)

// CreateRunDir makes a fresh timestamped run directory under baseDir/runs
// and repoints baseDir/latest at it. When a directory for the current second
// already exists, a "-1", "-2", ... suffix keeps the new run separate.
func CreateRunDir(baseDir string) (string, error) {
	runsDir, err := filepath.Abs(filepath.Join(baseDir, "runs"))
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	for n := 1; ; n++ {
		err := os.Mkdir(runDir, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("creating run dir: %w", err)
		}
		runDir = filepath.Join(runsDir, fmt.Sprintf("%s-%d", stamp, n))
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

func matchupsDir(runDir string) string {
	return filepath.Join(runDir, "matchups")
}

// WriteMatchupOutcome atomically records one finished game's outcome, keyed
// by its Matchup.ID(). Called after every game so a crashed or killed run
// can resume from LoadMatchupOutcome instead of re-playing completed games.
func WriteMatchupOutcome(runDir, matchupID string, outcome matchup.GameOutcome) error {
	dir := matchupsDir(runDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating matchups dir: %w", err)
	}
	return atomicWriteJSON(filepath.Join(dir, matchupID+".json"), outcome)
}

// LoadMatchupOutcome returns a previously recorded outcome for matchupID, if
// one exists. The second return value is false (with a nil error) when
// nothing has been written for that matchup yet.
func LoadMatchupOutcome(runDir, matchupID string) (matchup.GameOutcome, bool, error) {
	path := filepath.Join(matchupsDir(runDir), matchupID+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return matchup.GameOutcome{}, false, nil
	}
	if err != nil {
		return matchup.GameOutcome{}, false, fmt.Errorf("reading matchup outcome %s: %w", matchupID, err)
	}
	var outcome matchup.GameOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return matchup.GameOutcome{}, false, fmt.Errorf("parsing matchup outcome %s: %w", matchupID, err)
	}
	return outcome, true, nil
}

// WriteBenchmarkRun atomically writes the final aggregated run to
// runDir/benchmark.json.
func WriteBenchmarkRun(runDir string, run *matchup.BenchmarkRun) error {
	return atomicWriteJSON(filepath.Join(runDir, "benchmark.json"), run)
}

// ReadBenchmarkRun loads a previously written BenchmarkRun from path.
func ReadBenchmarkRun(path string) (*matchup.BenchmarkRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading benchmark run: %w", err)
	}
	var run matchup.BenchmarkRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing benchmark run: %w", err)
	}
	return &run, nil
}

// atomicWriteJSON marshals v and writes it via a temp-file-plus-rename so a
// reader (or a resumed run) never observes a partially written file.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}

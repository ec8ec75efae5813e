// Package arena is the tournament orchestrator: it turns a config.Config
// into a full BenchmarkRun by walking each agent down the opponent ladder,
// launching one containerized game per matchup, and folding the results
// into matchup.RunLadder. Its build-jobs/run-pool loop generalizes from
// (orchestrator, task, trial) triples to (agent, opponent, game) triples.
package arena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalnine/arena/internal/arenaerr"
	"github.com/signalnine/arena/internal/config"
	"github.com/signalnine/arena/internal/containerrunner"
	"github.com/signalnine/arena/internal/matchpool"
	"github.com/signalnine/arena/internal/matchup"
	"github.com/signalnine/arena/internal/result"
)

// gracefulShutdownWindow is how long a killed container gets to exit after
// SIGTERM before containerrunner escalates to SIGKILL.
const gracefulShutdownWindow = 2 * time.Second

// gameRunner matches containerrunner.RunGame's signature; Options.Runner
// defaults to it and tests substitute a fake to exercise the orchestrator's
// elimination and resumability logic without Docker.
type gameRunner func(ctx context.Context, opts *containerrunner.GameRunOpts, log zerolog.Logger) (matchup.GameOutcome, error)

// Options bundles everything RunTournament needs beyond the parsed config.
type Options struct {
	Config     *config.Config
	RunDir     string
	Log        zerolog.Logger
	Runner     gameRunner // nil means containerrunner.RunGame
	HeadToHead bool       // play every pair of agents against each other once, after the ladder
}

func (o Options) runner() gameRunner {
	if o.Runner != nil {
		return o.Runner
	}
	return containerrunner.RunGame
}

// RunTournament plays every configured agent down the opponent ladder and
// returns the aggregated run. Individual matchup failures that map to a
// known arenaerr outcome (timeout, crash) are recorded as losses for that
// game rather than aborting the whole run; only transport/config-level
// errors abort.
func RunTournament(ctx context.Context, opts Options) (*matchup.BenchmarkRun, error) {
	cfg := opts.Config
	ladder := ladderFromConfig(cfg)

	jobs := make([]matchpool.Job, len(cfg.Agents))
	entries := make([]matchup.AgentEntry, len(cfg.Agents))
	jobErrs := make([]error, len(cfg.Agents))

	for i, agent := range cfg.Agents {
		i, agent := i, agent
		jobs[i] = func() error {
			entry, err := runAgentLadder(ctx, opts, agent, ladder)
			entries[i] = entry
			jobErrs[i] = err
			return err
		}
	}

	matchpool.Run(cfg.Parallel, jobs)
	for _, err := range jobErrs {
		if err != nil {
			return nil, err
		}
	}

	run := &matchup.BenchmarkRun{
		ArenaVersion:    "v1",
		Format:          "single-elimination-ladder",
		Generated:       generatedAt(),
		Map:             cfg.Map,
		TickCap:         cfg.TickCap,
		GamesPerMatchup: cfg.GamesPerMatchup,
		Entries:         entries,
	}

	if opts.HeadToHead {
		h2h, err := runHeadToHead(ctx, opts, cfg.Agents)
		if err != nil {
			return nil, fmt.Errorf("head-to-head bracket: %w", err)
		}
		run.HeadToHead = h2h
	}

	if err := result.WriteBenchmarkRun(opts.RunDir, run); err != nil {
		return nil, fmt.Errorf("writing benchmark run: %w", err)
	}
	return run, nil
}

// runHeadToHead plays every unordered pair of agents against each other
// once, supplementary to the scored elimination ladder: it never feeds
// back into an AgentEntry's score.
func runHeadToHead(ctx context.Context, opts Options, agents []config.Agent) ([]matchup.HeadToHeadResult, error) {
	var results []matchup.HeadToHeadResult
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			a, b := agents[i], agents[j]
			outcome, err := runHeadToHeadGame(ctx, opts, a, b)
			if err != nil {
				return nil, fmt.Errorf("%s vs %s: %w", a.Name, b.Name, err)
			}
			results = append(results, matchup.HeadToHeadResult{
				AgentA:  a.Name,
				AgentB:  b.Name,
				Outcome: outcome,
			})
		}
	}
	return results, nil
}

func runHeadToHeadGame(ctx context.Context, opts Options, a, b config.Agent) (matchup.GameOutcome, error) {
	cfg := opts.Config
	id := "h2h__" + a.Name + "__" + b.Name

	if cached, ok, err := result.LoadMatchupOutcome(opts.RunDir, id); err == nil && ok {
		opts.Log.Debug().Str("matchup", id).Msg("resuming head-to-head from recorded outcome")
		return cached, nil
	}

	runOpts := &containerrunner.GameRunOpts{
		Image:         cfg.Image,
		MatchupID:     id,
		AgentClass:    a.Class,
		OpponentClass: b.Class,
		Map:           cfg.Map,
		TickCap:       cfg.TickCap,
		ModelHost:     a.ModelHost,
		ModelName:     a.ModelName,
		ModelNameP2:   b.ModelName,
		Timeout:       time.Duration(cfg.BudgetSeconds) * time.Second,
		GraceWindow:   gracefulShutdownWindow,
	}

	outcome, err := opts.runner()(ctx, runOpts, opts.Log)
	if err != nil {
		var timeoutErr *arenaerr.ChildTimeoutError
		var crashErr *arenaerr.ChildCrashError
		switch {
		case errors.As(err, &timeoutErr):
			outcome = matchup.GameOutcome{Result: matchup.ResultTimeout, Ticks: cfg.TickCap}
		case errors.As(err, &crashErr):
			outcome = matchup.GameOutcome{Result: matchup.ResultCrash, CrashReason: crashErr.Error()}
		default:
			return matchup.GameOutcome{}, err
		}
	}

	if err := result.WriteMatchupOutcome(opts.RunDir, id, outcome); err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("recording head-to-head outcome: %w", err)
	}
	return outcome, nil
}

// generatedAt is split out so a future caller with a fixed clock (tests,
// resumed runs) can override it; today it just wraps time.Now since
// workflow scripts aside, orchestrator runs are never replayed.
func generatedAt() (t time.Time) {
	return time.Now().UTC()
}

func ladderFromConfig(cfg *config.Config) []matchup.Opponent {
	if len(cfg.Opponents) == 0 {
		return matchup.DefaultLadder()
	}
	ladder := make([]matchup.Opponent, len(cfg.Opponents))
	for i, o := range cfg.Opponents {
		ladder[i] = matchup.Opponent{Name: o.Name, Class: o.Class, Weight: o.Weight, Difficulty: o.Difficulty}
	}
	return ladder
}

// runAgentLadder plays agent against each ladder opponent in order, stopping
// after the first opponent it fails to majority-win, and folds the results
// into one AgentEntry via matchup.RunLadder.
func runAgentLadder(ctx context.Context, opts Options, agent config.Agent, ladder []matchup.Opponent) (matchup.AgentEntry, error) {
	cfg := opts.Config
	outcomesByOpponent := map[string][]matchup.GameOutcome{}

	for rank, opp := range ladder {
		var outcomes []matchup.GameOutcome
		wins := 0
		for g := 0; g < cfg.GamesPerMatchup; g++ {
			m := matchup.Matchup{
				AgentName:    agent.Name,
				Opponent:     opp,
				Map:          cfg.Map,
				TickCap:      cfg.TickCap,
				BudgetSecs:   cfg.BudgetSeconds,
				GameIndex:    g,
				OpponentRank: rank,
			}
			outcome, err := runOneMatchup(ctx, opts, agent, m)
			if err != nil {
				return matchup.AgentEntry{}, fmt.Errorf("agent %s vs %s game %d: %w", agent.Name, opp.Name, g, err)
			}
			outcomes = append(outcomes, outcome)
			if outcome.Result == matchup.ResultWin {
				wins++
			}
		}
		outcomesByOpponent[opp.Name] = outcomes

		if wins*2 <= len(outcomes) {
			break
		}
	}

	return matchup.RunLadder(agent.Name, agent.Architecture, ladder, cfg.TickCap, outcomesByOpponent), nil
}

// runOneMatchup resumes a previously recorded outcome if present, otherwise
// launches the containerized game and records the outcome before returning
// it. Timeouts and crashes are translated into GameOutcome values instead of
// propagating as errors, since a single misbehaving opponent shouldn't abort
// the whole tournament.
func runOneMatchup(ctx context.Context, opts Options, agent config.Agent, m matchup.Matchup) (matchup.GameOutcome, error) {
	id := m.ID()
	if cached, ok, err := result.LoadMatchupOutcome(opts.RunDir, id); err == nil && ok {
		opts.Log.Debug().Str("matchup", id).Msg("resuming from recorded outcome")
		return cached, nil
	}

	runOpts := &containerrunner.GameRunOpts{
		Image:         opts.Config.Image,
		MatchupID:     id,
		AgentClass:    agent.Class,
		OpponentClass: m.Opponent.Class,
		Map:           m.Map,
		TickCap:       m.TickCap,
		ModelHost:     agent.ModelHost,
		ModelName:     agent.ModelName,
		Timeout:       time.Duration(m.BudgetSecs) * time.Second,
		GraceWindow:   gracefulShutdownWindow,
	}

	outcome, err := opts.runner()(ctx, runOpts, opts.Log)
	if err != nil {
		var timeoutErr *arenaerr.ChildTimeoutError
		var crashErr *arenaerr.ChildCrashError
		switch {
		case errors.As(err, &timeoutErr):
			outcome = matchup.GameOutcome{Result: matchup.ResultTimeout, Ticks: m.TickCap}
		case errors.As(err, &crashErr):
			outcome = matchup.GameOutcome{Result: matchup.ResultCrash, CrashReason: crashErr.Error()}
		default:
			return matchup.GameOutcome{}, err
		}
	}

	if err := result.WriteMatchupOutcome(opts.RunDir, id, outcome); err != nil {
		return matchup.GameOutcome{}, fmt.Errorf("recording matchup outcome: %w", err)
	}
	return outcome, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/arena/internal/arena"
	"github.com/signalnine/arena/internal/config"
	"github.com/signalnine/arena/internal/logging"
	"github.com/signalnine/arena/internal/report"
	"github.com/signalnine/arena/internal/result"
)

var (
	flagAgent      string
	flagParallel   int
	flagLogLevel   string
	flagHeadToHead bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tournament: every configured agent down the opponent ladder",
		RunE:  runBenchmark,
	}
	cmd.Flags().StringVar(&flagAgent, "agent", "", "filter to a single agent by name")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "override max concurrent agent jobs")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flagHeadToHead, "head-to-head", false, "after the ladder, play every pair of agents against each other once")
	return cmd
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagAgent != "" {
		cfg.Agents = filterAgents(cfg.Agents, flagAgent)
		if len(cfg.Agents) == 0 {
			return fmt.Errorf("no agent named %q in %s", flagAgent, cfgFile)
		}
	}
	if flagParallel > 0 {
		cfg.Parallel = flagParallel
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	log := logging.New(flagLogLevel, os.Stderr)
	run, err := arena.RunTournament(context.Background(), arena.Options{
		Config:     cfg,
		RunDir:     runDir,
		Log:        log,
		HeadToHead: flagHeadToHead,
	})
	if err != nil {
		return fmt.Errorf("running tournament: %w", err)
	}

	fmt.Printf("\n%d agent(s) benchmarked.\n", len(run.Entries))
	fmt.Println("\n--- Results ---")
	return report.Generate(runDir, "table", os.Stdout)
}

func filterAgents(agents []config.Agent, name string) []config.Agent {
	var filtered []config.Agent
	for _, a := range agents {
		if a.Name == name {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/arena/internal/config"
	"github.com/signalnine/arena/internal/leaderboard"
)

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Consolidate every recorded run into leaderboard.json and LEADERBOARD.md",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			best, err := leaderboard.Generate(cfg.Results.Dir)
			if err != nil {
				return err
			}
			if len(best) == 0 {
				fmt.Println("No benchmark runs found.")
				return nil
			}
			fmt.Printf("Wrote leaderboard for %d agent(s) to %s\n", len(best), cfg.Results.Dir)
			return nil
		},
	}
}

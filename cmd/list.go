package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/arena/internal/config"
	"github.com/signalnine/arena/internal/matchup"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured agents and the opponent ladder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Println("Agents:")
			for _, a := range cfg.Agents {
				fmt.Printf("  - %s (%s)\n", a.Name, a.Architecture)
			}
			fmt.Println("\nOpponent ladder:")
			ladder := cfg.Opponents
			if len(ladder) == 0 {
				for _, o := range matchup.DefaultLadder() {
					fmt.Printf("  - %s [weight %.0f, %s]\n", o.Name, o.Weight, o.Difficulty)
				}
				return nil
			}
			for _, o := range ladder {
				fmt.Printf("  - %s [weight %.0f, %s]\n", o.Name, o.Weight, o.Difficulty)
			}
			return nil
		},
	}
}

package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arena",
		Short: "Benchmark harness for LLM-guided RTS game agents",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "arena.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newLeaderboardCmd())
	return root
}

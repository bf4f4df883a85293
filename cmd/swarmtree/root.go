package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmtree",
	Short: "Worktree-based agent coordination",
	Long: `Swarmtree coordinates a pool of development agents working on
features in isolated git worktrees.

Core capabilities:
- Queues feature specs and matches them to agents by priority and complexity
- Creates an isolated worktree and branch per assignment
- Validates submitted work before completion
- Reclaims stale agents and requeues their features
- Records every coordination event to a JSONL log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cleanupCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one coordination cycle",
	Long: `Run a single coordination cycle: assign queued features to idle
agents, reap stale agents, and persist the resulting state.`,
	RunE: runCycleCmd,
}

func runCycleCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	result := a.coord.RunCycle()
	fmt.Printf("Cycle complete: %d assignment(s), %d timeout(s) reclaimed in %s\n",
		result.AssignmentsMade, result.TimeoutsReclaimed, result.Duration)

	return a.persist()
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runQuiet bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the coordination loop",
	Long: `Run the coordination loop until interrupted.

Every cycle interval, queued features are assigned to idle agents and
stale agents are reaped. Snapshots are persisted on the snapshot
interval, and every coordination event is printed as it happens.

Stop with Ctrl-C; a final snapshot is written on shutdown.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress live event output")
}

func runLoop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.coord.RunReaper(ctx, a.cfg.Coordinator.ReapInterval)

	if !runQuiet {
		go printEvents(ctx, a)
	}

	cycleTicker := time.NewTicker(a.cfg.Coordinator.CycleInterval)
	defer cycleTicker.Stop()
	snapshotTicker := time.NewTicker(a.cfg.State.SnapshotInterval)
	defer snapshotTicker.Stop()

	fmt.Printf("Coordination loop started (cycle every %s, snapshot every %s)\n",
		a.cfg.Coordinator.CycleInterval, a.cfg.State.SnapshotInterval)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down, writing final snapshot...")
			return a.persist()
		case <-cycleTicker.C:
			a.coord.RunCycle()
		case <-snapshotTicker.C:
			if err := a.persist(); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
			if _, err := a.db.PurgeOldSnapshots(a.cfg.State.RetainSnapshots); err != nil {
				fmt.Printf("Warning: purge snapshots: %v\n", err)
			}
		}
	}
}

// printEvents streams coordination events to stdout until the context ends.
func printEvents(ctx context.Context, a *app) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.emitter.Events():
			if !ok {
				return
			}
			ts := time.Unix(int64(ev.Timestamp), 0).Format("15:04:05")
			line := fmt.Sprintf("[%s] %s", ts, ev.Name)
			for _, key := range []string{"agent_id", "feature_id", "outcome", "reason"} {
				if v := ev.Attributes[key]; v != "" {
					line += fmt.Sprintf(" %s=%s", key, v)
				}
			}
			fmt.Println(line)
		}
	}
}

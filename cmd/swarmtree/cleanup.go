package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	cleanupForce     bool
	cleanupVerbose   bool
	cleanupDryRun    bool
	cleanupSnapshots bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove orphaned worktrees and old snapshots",
	Long: `Clean up orphaned git worktrees and old snapshot data.

This command:
  - Lists all coordinator-managed worktrees
  - Identifies orphaned worktrees (no active feature)
  - Removes orphaned worktrees and their branches
  - Runs git worktree prune

With --snapshots flag:
  - Purges stored snapshots past the retention window

Use this after a crash or after agents have been reaped.

Examples:
  swarmtree cleanup              # Interactive cleanup with confirmation
  swarmtree cleanup --force      # Skip confirmation prompt
  swarmtree cleanup --dry-run    # Show what would be removed
  swarmtree cleanup -v           # Verbose output showing each removal
  swarmtree cleanup --snapshots  # Also purge old snapshots`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVarP(&cleanupVerbose, "verbose", "v", false, "Show each worktree as it's removed")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
	cleanupCmd.Flags().BoolVar(&cleanupSnapshots, "snapshots", false, "Purge snapshots past the retention window")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Features still live in the coordinator keep their worktrees.
	var activeFeatures []string
	snap := a.coord.Snapshot()
	for _, f := range snap.Active {
		activeFeatures = append(activeFeatures, f.ID)
	}

	orphans, err := a.worktrees.ListOrphans(activeFeatures)
	if err != nil {
		return fmt.Errorf("list orphaned worktrees: %w", err)
	}

	if len(orphans) == 0 {
		fmt.Println("No orphaned worktrees found.")
	} else {
		fmt.Printf("Found %d orphaned worktree(s):\n", len(orphans))
		for _, wt := range orphans {
			fmt.Printf("  - %s (branch: %s)\n", wt.Path, wt.Branch)
		}
		fmt.Println()

		if cleanupDryRun {
			fmt.Println("Dry run mode - no worktrees were removed.")
		} else if cleanupForce || confirm("Remove these worktrees? [y/N] ") {
			var verboseCallback func(path string)
			if cleanupVerbose {
				verboseCallback = func(path string) {
					fmt.Printf("Removed: %s\n", path)
				}
			}

			removed, err := a.worktrees.CleanupOrphans(activeFeatures, verboseCallback)
			if err != nil {
				return fmt.Errorf("cleanup orphaned worktrees: %w", err)
			}
			fmt.Printf("Successfully removed %d orphaned worktree(s).\n", removed)
		} else {
			fmt.Println("Worktree cleanup cancelled.")
		}
	}

	if cleanupSnapshots {
		if cleanupDryRun {
			n, err := a.db.SnapshotCount()
			if err != nil {
				return fmt.Errorf("count snapshots: %w", err)
			}
			fmt.Printf("Dry run: %d snapshot(s) stored; old ones would be purged.\n", n)
			return nil
		}

		purged, err := a.db.PurgeOldSnapshots(a.cfg.State.RetainSnapshots)
		if err != nil {
			return fmt.Errorf("purge old snapshots: %w", err)
		}
		if purged > 0 {
			fmt.Printf("Purged %d old snapshot(s).\n", purged)
		} else {
			fmt.Println("No snapshots past the retention window.")
		}
	}

	return nil
}

// confirm prompts on stdin and returns true on a yes answer.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

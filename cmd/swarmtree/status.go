package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/swarmtree/swarmtree/internal/coordinator"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coordination state",
	Long: `Display the current coordination state.

Shows:
  - Registered agents and their states
  - Queued and active features
  - Coordination health score
  - Recent completions`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "Show per-agent and per-feature detail")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	st := a.coord.Status()

	fmt.Printf("Agents: %d registered, %d active, %d idle\n",
		st.TotalAgents, st.ActiveAgents, st.IdleAgents)
	for stateName, n := range st.AgentsByState {
		if stateName == "idle" {
			continue
		}
		fmt.Printf("  %s: %d\n", stateName, n)
	}

	fmt.Printf("Features: %d queued, %d active, %d completed\n",
		st.QueuedFeatures, st.ActiveFeatures, st.Completed)

	printHealth(st.Health)

	if statusVerbose {
		printAgents(st)
		printQueue(st)
	}

	return printRecentCompletions(a)
}

// printHealth renders the health score with a colored band.
func printHealth(health float64) {
	var c *color.Color
	switch {
	case health >= 0.8:
		c = color.New(color.FgGreen)
	case health >= 0.5:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	fmt.Printf("Health: %s\n", c.Sprintf("%.2f", health))
}

func printAgents(st coordinator.Status) {
	if len(st.Agents) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Agents:")
	for _, a := range st.Agents {
		line := fmt.Sprintf("  %s: %s", a.Profile.ID, a.State)
		if a.CurrentFeature != "" {
			line += fmt.Sprintf(" (feature %s, %s ago)",
				a.CurrentFeature, formatDuration(time.Since(a.LastActivity)))
		}
		fmt.Println(line)
	}
}

func printQueue(st coordinator.Status) {
	if len(st.Queue) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Queue:")
	for i, f := range st.Queue {
		fmt.Printf("  %d. %s %q priority=%s effort=%d\n",
			i+1, f.ID, f.Name, f.Priority, f.EstimatedEffort)
	}
}

func printRecentCompletions(a *app) error {
	records, err := a.db.CompletionHistory(5)
	if err != nil {
		return fmt.Errorf("load completion history: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("Recent completions:")
	for _, r := range records {
		fmt.Printf("  %s %q by %s (%s ago, %d files)\n",
			r.ID, r.Name, r.AgentID,
			formatDuration(time.Since(r.CompletedAt)), r.ChangedFiles)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

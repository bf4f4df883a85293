package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarmtree/swarmtree/pkg/models"
)

var (
	agentID            string
	agentComplexity    string
	agentTags          []string
	agentMaxConcurrent int
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage the agent pool",
}

var agentsRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new agent",
	Long: `Register an agent profile with the coordinator.

The profile declares what kind of work the agent prefers; the matching
engine favors features whose estimated effort fits the agent's
preferred complexity band.

Examples:
  swarmtree agents register --id backend-1 --complexity high
  swarmtree agents register --tags api,db --complexity medium`,
	RunE: runAgentsRegister,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE:  runAgentsList,
}

func init() {
	agentsRegisterCmd.Flags().StringVar(&agentID, "id", "", "Agent id (generated when omitted)")
	agentsRegisterCmd.Flags().StringVar(&agentComplexity, "complexity", "medium", "Preferred complexity (low, medium, high)")
	agentsRegisterCmd.Flags().StringSliceVar(&agentTags, "tags", nil, "Capability tags")
	agentsRegisterCmd.Flags().IntVar(&agentMaxConcurrent, "max-concurrent", 1, "Maximum concurrent features")

	agentsCmd.AddCommand(agentsRegisterCmd)
	agentsCmd.AddCommand(agentsListCmd)
}

func runAgentsRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	id, err := a.coord.RegisterAgent(models.AgentProfile{
		ID:                  agentID,
		Tags:                agentTags,
		PreferredComplexity: models.Complexity(agentComplexity),
		MaxConcurrent:       agentMaxConcurrent,
	})
	if err != nil {
		return fmt.Errorf("register agent: %w", err)
	}

	fmt.Printf("Registered agent %s (complexity=%s)\n", id, agentComplexity)
	return a.persist()
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	st := a.coord.Status()
	if len(st.Agents) == 0 {
		fmt.Println("No agents registered. Run 'swarmtree agents register' first.")
		return nil
	}

	for _, agent := range st.Agents {
		line := fmt.Sprintf("%s  %-10s  complexity=%s  completed=%d",
			agent.Profile.ID, agent.State,
			agent.Profile.PreferredComplexity, len(agent.CompletedFeatures))
		if agent.CurrentFeature != "" {
			line += fmt.Sprintf("  feature=%s (%s ago)",
				agent.CurrentFeature, formatDuration(time.Since(agent.LastActivity)))
		}
		fmt.Println(line)
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/swarmtree/swarmtree/pkg/models"
)

var (
	enqueueFile     string
	enqueuePriority string
	enqueueEffort   int
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [name]",
	Short: "Add features to the queue",
	Long: `Add one or more features to the pending queue.

A single feature can be enqueued inline:

  swarmtree enqueue "user auth" --priority high --effort 5

Or a batch can be loaded from a YAML file:

  swarmtree enqueue -f features.yaml

The file holds a list of feature specs:

  - name: user auth
    description: Add login and session handling
    priority: high
    estimated_effort: 5
    requirements:
      - OAuth2 support`,
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVarP(&enqueueFile, "file", "f", "", "YAML file with feature specs")
	enqueueCmd.Flags().StringVar(&enqueuePriority, "priority", "medium", "Feature priority (high, medium, low)")
	enqueueCmd.Flags().IntVar(&enqueueEffort, "effort", 3, "Estimated effort")
}

// featureSpec is the YAML shape of a feature definition.
type featureSpec struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Requirements    []string `yaml:"requirements"`
	Priority        string   `yaml:"priority"`
	EstimatedEffort int      `yaml:"estimated_effort"`
}

func (s featureSpec) toFeature() models.Feature {
	return models.Feature{
		Name:            s.Name,
		Description:     s.Description,
		Requirements:    s.Requirements,
		Priority:        models.Priority(s.Priority),
		EstimatedEffort: s.EstimatedEffort,
	}
}

// loadFeatureSpecs parses a YAML file holding a list of feature specs.
func loadFeatureSpecs(path string) ([]featureSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature file: %w", err)
	}

	var specs []featureSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse feature file %s: %w", path, err)
	}
	return specs, nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if enqueueFile == "" && len(args) == 0 {
		return fmt.Errorf("provide a feature name or --file")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var features []models.Feature
	if enqueueFile != "" {
		specs, err := loadFeatureSpecs(enqueueFile)
		if err != nil {
			return err
		}
		for _, s := range specs {
			features = append(features, s.toFeature())
		}
	}
	if len(args) > 0 {
		features = append(features, models.Feature{
			Name:            args[0],
			Priority:        models.Priority(enqueuePriority),
			EstimatedEffort: enqueueEffort,
		})
	}

	for _, f := range features {
		id, err := a.coord.EnqueueFeature(f)
		if err != nil {
			return fmt.Errorf("enqueue %q: %w", f.Name, err)
		}
		fmt.Printf("Enqueued %s: %q (priority=%s, effort=%d)\n", id, f.Name, f.Priority, f.EstimatedEffort)
	}

	return a.persist()
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/swarmtree/swarmtree/pkg/models"
)

func TestLoadFeatureSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.yaml")
	content := `
- name: user auth
  description: Add login and session handling
  priority: high
  estimated_effort: 5
  requirements:
    - OAuth2 support
    - session cookies
- name: typo fix
  priority: low
  estimated_effort: 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write specs: %v", err)
	}

	specs, err := loadFeatureSpecs(path)
	if err != nil {
		t.Fatalf("loadFeatureSpecs() error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}

	f := specs[0].toFeature()
	if f.Name != "user auth" || f.Priority != models.PriorityHigh || f.EstimatedEffort != 5 {
		t.Errorf("feature = %+v", f)
	}
	if len(f.Requirements) != 2 {
		t.Errorf("requirements = %v, want 2 entries", f.Requirements)
	}
}

func TestLoadFeatureSpecsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0644); err != nil {
		t.Fatalf("write specs: %v", err)
	}
	if _, err := loadFeatureSpecs(path); err == nil {
		t.Error("expected parse error")
	}
}

// Package plan defines the scene plan model and the planner agent that
// produces it from a theorem name and description.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scene is one narrated animation segment of the final video. Scenes are
// immutable once produced by the planner; downstream stages read them only.
type Scene struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Purpose     string `json:"purpose"`
	Description string `json:"description"`
	Layout      string `json:"layout,omitempty"`
	Narration   string `json:"narration"`
}

// ScenePlan is the ordered collection of scenes for one theorem explanation.
// Order is semantically meaningful: it determines narration and final video
// order.
type ScenePlan struct {
	TheoremName        string  `json:"theorem_name"`
	TheoremDescription string  `json:"theorem_description"`
	Scenes             []Scene `json:"scenes"`
}

// Validate checks the plan invariants: at least one scene, and contiguous
// unique indexes 0..n-1.
func (p *ScenePlan) Validate() error {
	if len(p.Scenes) == 0 {
		return fmt.Errorf("scene plan is empty")
	}
	for i, s := range p.Scenes {
		if s.Index != i {
			return fmt.Errorf("scene at position %d has index %d, want %d", i, s.Index, i)
		}
		if s.Narration == "" {
			return fmt.Errorf("scene %d has no narration", i)
		}
		if s.Description == "" {
			return fmt.Errorf("scene %d has no description", i)
		}
	}
	return nil
}

// Save writes the plan as indented JSON to path.
func (p *ScenePlan) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding scene plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scene plan: %w", err)
	}
	return nil
}

// Load reads a plan previously written by Save and validates it.
func Load(path string) (*ScenePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene plan: %w", err)
	}
	var p ScenePlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding scene plan %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene plan %s: %w", path, err)
	}
	return &p, nil
}

package plan

import (
	"os"
	"path/filepath"
	"testing"
)

func validPlan() *ScenePlan {
	return &ScenePlan{
		TheoremName:        "Pythagorean Theorem",
		TheoremDescription: "a^2 + b^2 = c^2 for right triangles",
		Scenes: []Scene{
			{Index: 0, Title: "Intro", Description: "Show the triangle", Narration: "We begin."},
			{Index: 1, Title: "Proof", Description: "Rearrange the squares", Narration: "Now the proof."},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScenePlan)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *ScenePlan) {}},
		{
			name:    "empty plan",
			mutate:  func(p *ScenePlan) { p.Scenes = nil },
			wantErr: true,
		},
		{
			name:    "index gap",
			mutate:  func(p *ScenePlan) { p.Scenes[1].Index = 5 },
			wantErr: true,
		},
		{
			name:    "missing narration",
			mutate:  func(p *ScenePlan) { p.Scenes[0].Narration = "" },
			wantErr: true,
		},
		{
			name:    "missing description",
			mutate:  func(p *ScenePlan) { p.Scenes[1].Description = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlan()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene_plan.json")

	original := validPlan()
	if err := original.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TheoremName != original.TheoremName {
		t.Errorf("theorem name = %q, want %q", loaded.TheoremName, original.TheoremName)
	}
	if len(loaded.Scenes) != len(original.Scenes) {
		t.Fatalf("loaded %d scenes, want %d", len(loaded.Scenes), len(original.Scenes))
	}
	if loaded.Scenes[1].Narration != original.Scenes[1].Narration {
		t.Errorf("narration = %q, want %q", loaded.Scenes[1].Narration, original.Scenes[1].Narration)
	}
}

func TestLoadRejectsInvalidPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene_plan.json")
	data := `{"theorem_name":"Empty","theorem_description":"","scenes":[]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an empty plan")
	}
}

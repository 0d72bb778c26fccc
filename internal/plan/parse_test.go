package plan

import "testing"

const framedPlan = `Here is the plan you asked for.

SCENE PLAN BEGIN:
[Scene 1]
Title: Statement of the Theorem
Purpose: Introduce the claim
Description: Show the right triangle with labeled sides a, b, c.
Layout: Triangle centered, labels outside the edges
Narration: "The Pythagorean theorem relates the three sides of a right triangle."

[Scene 2]
Title: Visual Proof
Purpose: Build intuition
Description: Animate the squares on each side and rearrange them.
Layout: Squares attached to each edge
Narration: The square on the hypotenuse equals the other two combined.
SCENE PLAN END:

Let me know if you want changes.`

func TestParseScenesFramed(t *testing.T) {
	scenes := ParseScenes(framedPlan)
	if len(scenes) != 2 {
		t.Fatalf("ParseScenes returned %d scenes, want 2", len(scenes))
	}

	first := scenes[0]
	if first.Index != 0 {
		t.Errorf("first scene index = %d, want 0", first.Index)
	}
	if first.Title != "Statement of the Theorem" {
		t.Errorf("first scene title = %q", first.Title)
	}
	if first.Purpose != "Introduce the claim" {
		t.Errorf("first scene purpose = %q", first.Purpose)
	}
	if first.Layout != "Triangle centered, labels outside the edges" {
		t.Errorf("first scene layout = %q", first.Layout)
	}
	if want := "The Pythagorean theorem relates the three sides of a right triangle."; first.Narration != want {
		t.Errorf("first scene narration = %q, want %q (quotes stripped)", first.Narration, want)
	}

	second := scenes[1]
	if second.Index != 1 {
		t.Errorf("second scene index = %d, want 1", second.Index)
	}
	if second.Title != "Visual Proof" {
		t.Errorf("second scene title = %q", second.Title)
	}
}

func TestParseScenesWithoutMarkers(t *testing.T) {
	raw := `[Scene 1]
Title: Only Scene
Description: A single scene without plan framing.
Narration: Just one scene.`

	scenes := ParseScenes(raw)
	if len(scenes) != 1 {
		t.Fatalf("ParseScenes returned %d scenes, want 1", len(scenes))
	}
	if scenes[0].Title != "Only Scene" {
		t.Errorf("title = %q", scenes[0].Title)
	}
}

func TestParseScenesIgnoresEmptyOutput(t *testing.T) {
	for _, raw := range []string{"", "   ", "SCENE PLAN BEGIN:\n\nSCENE PLAN END:"} {
		if scenes := ParseScenes(raw); len(scenes) != 0 {
			t.Errorf("ParseScenes(%q) returned %d scenes, want 0", raw, len(scenes))
		}
	}
}

func TestParseScenesMultilineDescription(t *testing.T) {
	raw := `[Scene 1]
Title: Multi
Description: First line.
Second line continues the description.
Narration: Spoken text.`

	scenes := ParseScenes(raw)
	if len(scenes) != 1 {
		t.Fatalf("ParseScenes returned %d scenes, want 1", len(scenes))
	}
	want := "First line.\nSecond line continues the description."
	if scenes[0].Description != want {
		t.Errorf("description = %q, want %q", scenes[0].Description, want)
	}
}

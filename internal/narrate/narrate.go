// Package narrate converts scene narration text to audio. Narration depends
// only on the scene text, so it runs concurrently with code generation and
// rendering.
package narrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/papapumpkin/proofreel/internal/media"
	"github.com/papapumpkin/proofreel/internal/plan"
)

// ErrSynthesis marks upstream TTS failures.
var ErrSynthesis = errors.New("narration synthesis failed")

// Artifact is one scene's synthesized narration. Its lifecycle is
// independent of the scene's code artifacts.
type Artifact struct {
	SceneIndex int
	AudioPath  string
	Duration   time.Duration
}

// Synthesizer converts one scene's narration text into an audio artifact
// under dir.
type Synthesizer interface {
	Synthesize(ctx context.Context, scene plan.Scene, dir string) (Artifact, error)
}

// AudioFileName is the scene-scoped audio file name, matching the rendered
// segment numbering.
func AudioFileName(index int) string {
	return fmt.Sprintf("scene_%02d.mp3", index)
}

// GTTS synthesizes narration through the gtts-cli tool.
type GTTS struct {
	Path     string // empty = "gtts-cli" on PATH
	Language string // empty = "en"
	Prober   *media.Prober
	Verbose  bool
}

func (g *GTTS) tool() string {
	if g.Path != "" {
		return g.Path
	}
	return "gtts-cli"
}

func (g *GTTS) lang() string {
	if g.Language != "" {
		return g.Language
	}
	return "en"
}

func (g *GTTS) Synthesize(ctx context.Context, scene plan.Scene, dir string) (Artifact, error) {
	narration := strings.Trim(strings.TrimSpace(scene.Narration), `"'`)
	if narration == "" {
		return Artifact{}, fmt.Errorf("%w: scene %d has no narration text", ErrSynthesis, scene.Index)
	}

	out := filepath.Join(dir, AudioFileName(scene.Index))
	cmd := exec.CommandContext(ctx, g.tool(),
		"--lang", g.lang(),
		"--output", out,
		narration,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if g.Verbose {
		fmt.Fprintf(os.Stderr, "[narrate] scene %d: synthesizing %d words\n",
			scene.Index, len(strings.Fields(narration)))
	}

	if err := cmd.Run(); err != nil {
		return Artifact{}, fmt.Errorf("%w: scene %d: %v\n%s", ErrSynthesis, scene.Index, err, stderr.String())
	}

	duration, err := g.Prober.Duration(ctx, out)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: scene %d: probing audio: %v", ErrSynthesis, scene.Index, err)
	}
	return Artifact{SceneIndex: scene.Index, AudioPath: out, Duration: duration}, nil
}

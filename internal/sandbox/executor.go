package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/papapumpkin/proofreel/internal/codegen"
	"github.com/papapumpkin/proofreel/internal/media"
)

// Executor renders one code artifact per call. Each execution gets its own
// temp workspace, removed on every exit path; the rendered file is moved to
// a scene-scoped path under MediaDir before cleanup so no two scenes can
// collide.
type Executor struct {
	ManimPath string        // empty = "manim" on PATH
	MediaDir  string        // rendered segments are moved here
	Timeout   time.Duration // wall-clock budget per render; 0 = no limit
	Quality   string        // "low", "medium", "high"
	Prober    *media.Prober
	Verbose   bool
	Logger    io.Writer // nil = os.Stderr
}

var (
	sceneClassRe  = regexp.MustCompile(`class\s+(\w+)\s*\(\s*Scene\s*\)`)
	fileWrittenRe = regexp.MustCompile(`File written to:?\s*['"]?([^'"\n]+\.mp4)`)
)

// killGracePeriod bounds how long Wait may linger on the output pipes after
// the render is killed.
const killGracePeriod = time.Second

func (e *Executor) logger() io.Writer {
	if e.Logger != nil {
		return e.Logger
	}
	return os.Stderr
}

func (e *Executor) manim() string {
	if e.ManimPath != "" {
		return e.ManimPath
	}
	return "manim"
}

// qualityFlag maps the configured quality to manim's CLI flag.
func (e *Executor) qualityFlag() string {
	switch e.Quality {
	case "low":
		return "-ql"
	case "high":
		return "-qh"
	default:
		return "-qm"
	}
}

// Execute runs the artifact and returns a classified Result. The context
// governs cancellation; the executor's Timeout additionally bounds the
// render itself, reported as FailureTimeout rather than an error.
func (e *Executor) Execute(ctx context.Context, artifact codegen.CodeArtifact) Result {
	className := ExtractSceneClass(artifact.Source)
	if className == "" {
		return failure(FailureSyntax, "no class inheriting from Scene found in generated code")
	}

	workspace, err := os.MkdirTemp("", fmt.Sprintf("proofreel-scene%d-", artifact.SceneIndex))
	if err != nil {
		return failure(FailureResource, fmt.Sprintf("creating workspace: %v", err))
	}
	defer os.RemoveAll(workspace)

	script := filepath.Join(workspace, fmt.Sprintf("scene_%d.py", artifact.SceneIndex))
	if err := os.WriteFile(script, []byte(artifact.Source), 0o644); err != nil {
		return failure(FailureResource, fmt.Sprintf("writing script: %v", err))
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.manim(),
		e.qualityFlag(),
		"--disable_caching",
		"--media_dir", workspace,
		script,
		className,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Manim spawns its own children (ffmpeg encoders). Run them in a fresh
	// process group so cancellation kills the whole tree, and abandon the
	// output pipes after a grace period in case a grandchild survives the
	// kill while still holding them. Without both, a hung render blocks far
	// past the timeout budget.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killGracePeriod

	if e.Verbose {
		fmt.Fprintf(e.logger(), "[sandbox] scene %d attempt %d: rendering %s\n",
			artifact.SceneIndex, artifact.Attempt, className)
	}

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return failure(FailureRuntime, fmt.Sprintf("execution canceled: %v", ctx.Err()))
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return failure(FailureTimeout, fmt.Sprintf("render exceeded %s", e.Timeout))
	}
	if runErr != nil {
		transcript := stdout.String() + "\n" + stderr.String()
		return failure(Classify(transcript), strings.TrimSpace(transcript))
	}

	rendered, err := e.locateOutput(workspace, stdout.String(), className)
	if err != nil {
		return failure(FailureRuntime, err.Error())
	}

	final := filepath.Join(e.MediaDir, fmt.Sprintf("scene_%02d.mp4", artifact.SceneIndex))
	if err := moveFile(rendered, final); err != nil {
		return failure(FailureResource, fmt.Sprintf("moving rendered segment: %v", err))
	}

	duration, err := e.Prober.Duration(ctx, final)
	if err != nil {
		return failure(FailureRuntime, fmt.Sprintf("rendered segment unreadable: %v", err))
	}
	return success(final, duration)
}

// ExtractSceneClass returns the first Scene subclass declared in the source.
func ExtractSceneClass(source string) string {
	if m := sceneClassRe.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

// locateOutput finds the rendered mp4: first from manim's stdout, then by
// scanning the workspace media tree for the class-named file, then for any
// complete segment.
func (e *Executor) locateOutput(workspace, stdout, className string) (string, error) {
	if m := fileWrittenRe.FindStringSubmatch(stdout); m != nil {
		if _, err := os.Stat(m[1]); err == nil {
			return m[1], nil
		}
	}

	var candidates []string
	walkErr := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".mp4") {
			return nil
		}
		if strings.Contains(path, "partial_movie_files") {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("scanning workspace for output: %w", walkErr)
	}

	for _, c := range candidates {
		if strings.TrimSuffix(filepath.Base(c), ".mp4") == className {
			return c, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return "", errors.New("manim exited cleanly but produced no video file")
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

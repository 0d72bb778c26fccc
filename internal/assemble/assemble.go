// Package assemble muxes per-scene video and audio pairs and concatenates
// them into the final explanation video.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/papapumpkin/proofreel/internal/media"
)

// ErrAssembly marks final-assembly failures. Assembly errors are fatal for
// the run: no partial video is emitted.
var ErrAssembly = errors.New("video assembly failed")

// DefaultTolerance bounds how far a muxed segment's duration may drift from
// its expected duration before assembly fails. It must exceed audioBuffer.
const DefaultTolerance = time.Second

// audioBuffer is added when a video is extended to fit its narration, so the
// audio never gets clipped at a segment boundary.
const audioBuffer = 500 * time.Millisecond

// Segment is one scene's finalized (video, audio) pair. AudioPath may be
// empty for scenes without narration; the video is then re-encoded as-is.
type Segment struct {
	SceneIndex int
	VideoPath  string
	AudioPath  string
}

// Assembler concatenates segments by ascending scene index, muxing each
// segment's narration against its video. It never reorders or drops a
// segment silently.
type Assembler struct {
	FFmpegPath      string // empty = "ffmpeg" on PATH
	Prober          *media.Prober
	Tolerance       time.Duration // 0 = DefaultTolerance
	RequireComplete bool          // indexes must be exactly 0..n-1 (strict runs)
	Verbose         bool
	Logger          io.Writer // nil = os.Stderr
}

func (a *Assembler) ffmpeg() string {
	if a.FFmpegPath != "" {
		return a.FFmpegPath
	}
	return "ffmpeg"
}

func (a *Assembler) tolerance() time.Duration {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return DefaultTolerance
}

func (a *Assembler) logger() io.Writer {
	if a.Logger != nil {
		return a.Logger
	}
	return os.Stderr
}

// Assemble writes the final video to outPath and returns it. The segments
// are validated, muxed one by one in a scratch directory, and joined with
// the concat demuxer; the scratch directory is removed on all exit paths.
func (a *Assembler) Assemble(ctx context.Context, segments []Segment, outPath string) (string, error) {
	ordered, err := a.validate(segments)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: creating output directory: %v", ErrAssembly, err)
	}
	scratch, err := os.MkdirTemp("", "proofreel-assemble-")
	if err != nil {
		return "", fmt.Errorf("%w: creating scratch directory: %v", ErrAssembly, err)
	}
	defer os.RemoveAll(scratch)

	var muxed []string
	for _, seg := range ordered {
		path, err := a.muxSegment(ctx, seg, scratch)
		if err != nil {
			return "", err
		}
		muxed = append(muxed, path)
	}

	listPath := filepath.Join(scratch, "concat.txt")
	if err := writeConcatList(listPath, muxed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	if a.Verbose {
		fmt.Fprintf(a.logger(), "[assemble] concatenating %d segment(s) -> %s\n", len(muxed), outPath)
	}
	err = a.run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264",
		"-crf", "18",
		"-preset", "medium",
		"-c:a", "aac",
		"-b:a", "192k",
		"-y",
		outPath,
	)
	if err != nil {
		return "", fmt.Errorf("%w: concatenation: %v", ErrAssembly, err)
	}
	return outPath, nil
}

// validate sorts segments by index and rejects empty input, duplicates, and
// (when RequireComplete) gaps.
func (a *Assembler) validate(segments []Segment) ([]Segment, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments to assemble", ErrAssembly)
	}
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SceneIndex < ordered[j].SceneIndex })

	for i := 1; i < len(ordered); i++ {
		if ordered[i].SceneIndex == ordered[i-1].SceneIndex {
			return nil, fmt.Errorf("%w: duplicate segment for scene %d", ErrAssembly, ordered[i].SceneIndex)
		}
	}
	if a.RequireComplete {
		for i, seg := range ordered {
			if seg.SceneIndex != i {
				return nil, fmt.Errorf("%w: scene %d missing from segments", ErrAssembly, i)
			}
		}
	}
	return ordered, nil
}

// muxSegment produces a single consistently-encoded segment file with its
// narration track. A video shorter than its narration is first extended by
// freeze-framing its last frame.
func (a *Assembler) muxSegment(ctx context.Context, seg Segment, scratch string) (string, error) {
	out := filepath.Join(scratch, fmt.Sprintf("segment_%02d.mp4", seg.SceneIndex))

	if seg.AudioPath == "" {
		// No narration: re-encode for concat consistency.
		err := a.run(ctx,
			"-i", seg.VideoPath,
			"-c:v", "libx264", "-crf", "18", "-preset", "medium",
			"-c:a", "aac", "-b:a", "192k",
			"-y", out,
		)
		if err != nil {
			return "", fmt.Errorf("%w: scene %d re-encode: %v", ErrAssembly, seg.SceneIndex, err)
		}
		return out, nil
	}

	videoDur, err := a.Prober.Duration(ctx, seg.VideoPath)
	if err != nil {
		return "", fmt.Errorf("%w: scene %d: %v", ErrAssembly, seg.SceneIndex, err)
	}
	audioDur, err := a.Prober.Duration(ctx, seg.AudioPath)
	if err != nil {
		return "", fmt.Errorf("%w: scene %d: %v", ErrAssembly, seg.SceneIndex, err)
	}

	videoIn := seg.VideoPath
	expected := videoDur
	if videoDur < audioDur {
		target := audioDur + audioBuffer
		extended := filepath.Join(scratch, fmt.Sprintf("extended_%02d.mp4", seg.SceneIndex))
		if err := a.extendVideo(ctx, seg.VideoPath, target, extended, scratch); err != nil {
			return "", fmt.Errorf("%w: scene %d: %v", ErrAssembly, seg.SceneIndex, err)
		}
		videoIn = extended
		expected = target
	}

	err = a.run(ctx,
		"-i", videoIn,
		"-i", seg.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264", "-crf", "18", "-preset", "medium",
		"-c:a", "aac", "-b:a", "192k",
		"-y", out,
	)
	if err != nil {
		return "", fmt.Errorf("%w: scene %d mux: %v", ErrAssembly, seg.SceneIndex, err)
	}

	muxedDur, err := a.Prober.Duration(ctx, out)
	if err != nil {
		return "", fmt.Errorf("%w: scene %d: %v", ErrAssembly, seg.SceneIndex, err)
	}
	if drift := (muxedDur - expected).Abs(); drift > a.tolerance() {
		return "", fmt.Errorf("%w: scene %d duration drift %s exceeds tolerance %s",
			ErrAssembly, seg.SceneIndex, drift, a.tolerance())
	}
	return out, nil
}

// extendVideo pads the video to target duration by freezing its last frame,
// matching the source's frame rate so the transition is seamless.
func (a *Assembler) extendVideo(ctx context.Context, video string, target time.Duration, out, scratch string) error {
	videoDur, err := a.Prober.Duration(ctx, video)
	if err != nil {
		return err
	}
	if videoDur >= target {
		return a.run(ctx, "-i", video, "-c", "copy", "-y", out)
	}
	freezeDur := target - videoDur

	// A failed probe still yields usable defaults; the freeze frame only
	// needs a plausible frame rate.
	props, _ := a.Prober.Properties(ctx, video)

	lastFrame := filepath.Join(scratch, "last_frame.png")
	seek := videoDur - 100*time.Millisecond
	if seek < 0 {
		seek = 0
	}
	err = a.run(ctx,
		"-i", video,
		"-ss", ffDuration(seek),
		"-vframes", "1",
		"-y", lastFrame,
	)
	if err != nil {
		// Seeking near EOF can fail on very short clips; grab any frame.
		if err := a.run(ctx, "-i", video, "-vframes", "1", "-y", lastFrame); err != nil {
			return fmt.Errorf("extracting last frame: %w", err)
		}
	}

	freeze := filepath.Join(scratch, "freeze.mp4")
	err = a.run(ctx,
		"-loop", "1",
		"-i", lastFrame,
		"-t", ffDuration(freezeDur),
		"-vf", fmt.Sprintf("fps=%g", props.FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "medium",
		"-y", freeze,
	)
	if err != nil {
		return fmt.Errorf("building freeze frame: %w", err)
	}

	listPath := filepath.Join(scratch, "extend_concat.txt")
	if err := writeConcatList(listPath, []string{video, freeze}); err != nil {
		return err
	}
	err = a.run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:v", "libx264", "-crf", "18", "-preset", "medium",
		"-an",
		"-y", out,
	)
	if err != nil {
		return fmt.Errorf("extending video: %w", err)
	}
	return nil
}

func (a *Assembler) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %v: %w\n%s", args, err, tail(stderr.String(), 2000))
	}
	return nil
}

// writeConcatList writes an ffmpeg concat-demuxer file list with absolute
// paths.
func writeConcatList(path string, files []string) error {
	var b bytes.Buffer
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	return os.WriteFile(path, b.Bytes(), 0o644)
}

// ffDuration formats a duration as fractional seconds for ffmpeg flags.
func ffDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}

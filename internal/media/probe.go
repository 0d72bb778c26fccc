// Package media wraps ffprobe queries shared by the sandbox, narration, and
// assembly stages.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober answers duration and stream questions about media files.
type Prober struct {
	FFprobePath string // empty = "ffprobe" on PATH
}

func (p *Prober) path() string {
	if p.FFprobePath != "" {
		return p.FFprobePath
	}
	return "ffprobe"
}

// Duration returns the container duration of the media file.
func (p *Prober) Duration(ctx context.Context, file string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.path(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w\n%s", file, err, stderr.String())
	}
	return ParseDuration(stdout.String())
}

// ParseDuration converts ffprobe's seconds output into a Duration.
func ParseDuration(out string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", strings.TrimSpace(out), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// VideoProperties describes the first video stream of a file.
type VideoProperties struct {
	Width  int
	Height int
	FPS    float64
	Codec  string
}

// Properties returns the first video stream's properties, falling back to
// 1280x720 h264 at 30fps when ffprobe gives nothing usable.
func (p *Prober) Properties(ctx context.Context, file string) (VideoProperties, error) {
	cmd := exec.CommandContext(ctx, p.path(),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,codec_name",
		"-of", "json",
		file,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return defaultProperties(), fmt.Errorf("ffprobe %s: %w\n%s", file, err, stderr.String())
	}
	return ParseProperties(stdout.Bytes())
}

// ParseProperties decodes the JSON stream listing emitted by ffprobe.
func ParseProperties(out []byte) (VideoProperties, error) {
	var payload struct {
		Streams []struct {
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			FrameRate string `json:"r_frame_rate"`
			Codec     string `json:"codec_name"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &payload); err != nil || len(payload.Streams) == 0 {
		return defaultProperties(), fmt.Errorf("no video stream in ffprobe output")
	}

	s := payload.Streams[0]
	props := VideoProperties{Width: s.Width, Height: s.Height, FPS: parseFrameRate(s.FrameRate), Codec: s.Codec}
	if props.Width == 0 {
		props.Width = 1280
	}
	if props.Height == 0 {
		props.Height = 720
	}
	if props.Codec == "" {
		props.Codec = "h264"
	}
	return props, nil
}

// parseFrameRate handles ffprobe's "num/den" rate format.
func parseFrameRate(rate string) float64 {
	if num, den, ok := strings.Cut(rate, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN == nil && errD == nil && d != 0 {
			return n / d
		}
		return 30
	}
	if f, err := strconv.ParseFloat(rate, 64); err == nil && f > 0 {
		return f
	}
	return 30
}

func defaultProperties() VideoProperties {
	return VideoProperties{Width: 1280, Height: 720, FPS: 30, Codec: "h264"}
}

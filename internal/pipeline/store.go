package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const reportFileName = "report.toml"

// maxHistoryEntries is the maximum number of historical run summaries kept.
const maxHistoryEntries = 10

// reportFile is the TOML-serializable representation of the report file: the
// most recent run in full plus a capped history of previous runs.
type reportFile struct {
	Current reportRecord     `toml:"current"`
	History []historySummary `toml:"history"`
}

// reportRecord is the TOML-serializable form of one run's report.
// time.Duration fields are stored as nanosecond int64 values since the TOML
// library does not natively support Go durations.
type reportRecord struct {
	TheoremName string        `toml:"theorem_name"`
	StartedAt   time.Time     `toml:"started_at"`
	CompletedAt time.Time     `toml:"completed_at"`
	AllSuccess  bool          `toml:"all_success"`
	FinalVideo  string        `toml:"final_video,omitempty"`
	Failure     string        `toml:"failure,omitempty"`
	Scenes      []sceneRecord `toml:"scenes"`
}

type sceneRecord struct {
	SceneIndex    int    `toml:"scene_index"`
	Title         string `toml:"title,omitempty"`
	State         string `toml:"state"`
	Reason        string `toml:"reason"`
	Attempts      int    `toml:"attempts"`
	VideoDurNs    int64  `toml:"video_duration_ns,omitempty"`
	AudioDurNs    int64  `toml:"audio_duration_ns,omitempty"`
}

// historySummary captures a condensed record of a previous run.
type historySummary struct {
	TheoremName string    `toml:"theorem_name"`
	StartedAt   time.Time `toml:"started_at"`
	CompletedAt time.Time `toml:"completed_at"`
	AllSuccess  bool      `toml:"all_success"`
	SceneCount  int       `toml:"scene_count"`
	FailedCount int       `toml:"failed_count"`
}

// SaveReport writes the run report to dir/report.toml. A previous current
// section is rotated into the history array, capped at the most recent
// maxHistoryEntries.
func SaveReport(dir string, r *Report) error {
	existing, err := loadReportFile(dir)
	if err != nil {
		return fmt.Errorf("loading existing report: %w", err)
	}

	var history []historySummary
	if existing != nil {
		history = append(existing.History, recordToSummary(existing.Current))
	}
	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}

	out := reportFile{Current: reportToRecord(r), History: history}
	data, err := toml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	path := filepath.Join(dir, reportFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func loadReportFile(dir string) (*reportFile, error) {
	data, err := os.ReadFile(filepath.Join(dir, reportFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f reportFile
	if err := toml.Unmarshal(data, &f); err != nil {
		// A corrupt report file should not block a new run's report.
		return nil, nil
	}
	return &f, nil
}

func reportToRecord(r *Report) reportRecord {
	rec := reportRecord{
		TheoremName: r.TheoremName,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		AllSuccess:  r.AllSuccess,
		FinalVideo:  r.FinalVideo,
		Failure:     r.Failure,
	}
	for _, s := range r.Scenes {
		rec.Scenes = append(rec.Scenes, sceneRecord{
			SceneIndex: s.SceneIndex,
			Title:      s.Title,
			State:      s.State.String(),
			Reason:     s.Reason,
			Attempts:   s.Attempts,
			VideoDurNs: int64(s.VideoDuration),
			AudioDurNs: int64(s.AudioDuration),
		})
	}
	return rec
}

func recordToSummary(rec reportRecord) historySummary {
	failed := 0
	for _, s := range rec.Scenes {
		if s.State != SceneSucceeded.String() {
			failed++
		}
	}
	return historySummary{
		TheoremName: rec.TheoremName,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		AllSuccess:  rec.AllSuccess,
		SceneCount:  len(rec.Scenes),
		FailedCount: failed,
	}
}

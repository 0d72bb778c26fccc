package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/proofreel/internal/assemble"
	"github.com/papapumpkin/proofreel/internal/config"
	"github.com/papapumpkin/proofreel/internal/media"
	"github.com/papapumpkin/proofreel/internal/ui"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <media-dir> <output-file>",
	Short: "Stitch already-rendered scene videos into a final video",
	Long: "Scans a media directory for scene_NN.mp4 files, pairs each with\n" +
		"scene_NN.mp3 narration from the audio directory when present, and\n" +
		"concatenates the muxed segments into one video.",
	Args: cobra.ExactArgs(2),
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().String("audio-dir", "", "directory holding scene_NN.mp3 narration files")
	assembleCmd.Flags().Bool("strict", false, "require a contiguous scene sequence starting at 0")

	rootCmd.AddCommand(assembleCmd)
}

var sceneVideoRe = regexp.MustCompile(`^scene_(\d+)\.mp4$`)

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	printer := ui.New()

	mediaDir, outPath := args[0], args[1]
	audioDir, _ := cmd.Flags().GetString("audio-dir")
	strict, _ := cmd.Flags().GetBool("strict")

	segments, err := collectSegments(mediaDir, audioDir)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no scene videos found in %s", mediaDir)
	}
	printer.Info(fmt.Sprintf("assembling %d segment(s)", len(segments)))

	assembler := &assemble.Assembler{
		FFmpegPath:      cfg.FFmpegPath,
		Prober:          &media.Prober{FFprobePath: cfg.FFprobePath},
		RequireComplete: strict,
		Verbose:         cfg.Verbose,
	}
	final, err := assembler.Assemble(cmd.Context(), segments, outPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, final)
	return nil
}

// collectSegments pairs scene videos with their narration files by index.
func collectSegments(mediaDir, audioDir string) ([]assemble.Segment, error) {
	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("reading media dir: %w", err)
	}

	var segments []assemble.Segment
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := sceneVideoRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seg := assemble.Segment{
			SceneIndex: index,
			VideoPath:  filepath.Join(mediaDir, entry.Name()),
		}
		if audioDir != "" {
			audio := filepath.Join(audioDir, fmt.Sprintf("scene_%02d.mp3", index))
			if _, err := os.Stat(audio); err == nil {
				seg.AudioPath = audio
			}
		}
		segments = append(segments, seg)
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].SceneIndex < segments[j].SceneIndex
	})
	return segments, nil
}

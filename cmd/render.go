package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/proofreel/internal/anthropic"
	"github.com/papapumpkin/proofreel/internal/assemble"
	"github.com/papapumpkin/proofreel/internal/codegen"
	"github.com/papapumpkin/proofreel/internal/config"
	"github.com/papapumpkin/proofreel/internal/media"
	"github.com/papapumpkin/proofreel/internal/narrate"
	"github.com/papapumpkin/proofreel/internal/pipeline"
	"github.com/papapumpkin/proofreel/internal/plan"
	"github.com/papapumpkin/proofreel/internal/repair"
	"github.com/papapumpkin/proofreel/internal/sandbox"
	"github.com/papapumpkin/proofreel/internal/telemetry"
	"github.com/papapumpkin/proofreel/internal/ui"
	"github.com/papapumpkin/proofreel/internal/watch"
)

var renderCmd = &cobra.Command{
	Use:   "render <theorem-name> <theorem-description>",
	Short: "Generate the full explanation video for a theorem",
	Args:  cobra.ExactArgs(2),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().String("output-dir", "", "override output directory")
	renderCmd.Flags().Int("max-attempts", 0, "override render attempts per scene")
	renderCmd.Flags().Int("max-concurrent", 0, "override concurrent scene limit")
	renderCmd.Flags().Int("timeout", 0, "override per-render timeout in seconds")
	renderCmd.Flags().Bool("strict", false, "fail the run if any scene fails")
	renderCmd.Flags().String("plan-file", "", "use an existing scene plan instead of the planner agent")
	renderCmd.Flags().Bool("watch", false, "after the run, re-render when the scene plan file is edited")

	rootCmd.AddCommand(renderCmd)
}

// outputDirs is the on-disk layout of one run.
type outputDirs struct {
	root  string
	code  string
	media string
	audio string
	final string
	debug string
}

func makeOutputDirs(root string) (outputDirs, error) {
	d := outputDirs{
		root:  root,
		code:  filepath.Join(root, "code"),
		media: filepath.Join(root, "media"),
		audio: filepath.Join(root, "audio"),
		final: filepath.Join(root, "final"),
		debug: filepath.Join(root, "debug"),
	}
	for _, dir := range []string{d.root, d.code, d.media, d.audio, d.final, d.debug} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return outputDirs{}, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return d, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyRenderOverrides(cmd, &cfg)
	printer := ui.New()
	printer.Banner()

	theoremName, theoremDesc := args[0], args[1]

	dirs, err := makeOutputDirs(cfg.OutputDir)
	if err != nil {
		return err
	}

	invoker, err := anthropic.New(cfg.AnthropicAPIKey, cfg.Model)
	if err != nil {
		return err
	}
	invoker.Verbose = cfg.Verbose
	if err := invoker.Validate(); err != nil {
		printer.Error(err.Error())
		return err
	}

	emitter, err := telemetry.NewEmitter(filepath.Join(dirs.root, "events.jsonl"))
	if err != nil {
		printer.Error(fmt.Sprintf("telemetry disabled: %v", err))
		emitter = nil
	}
	defer emitter.Close()

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	planPath := filepath.Join(dirs.root, "scene_plan.json")
	sp, err := resolvePlan(ctx, cmd, invoker, &cfg, theoremName, theoremDesc, planPath)
	if err != nil {
		return err
	}
	_ = emitter.Emit(telemetry.Event{Kind: telemetry.KindPlanReady, Data: len(sp.Scenes)})

	orch := buildOrchestrator(&cfg, dirs, invoker, sp, printer, emitter)

	if err := runOnce(ctx, orch, sp, dirs, printer); err != nil {
		if watchFlag, _ := cmd.Flags().GetBool("watch"); !watchFlag {
			return err
		}
	}

	if watchFlag, _ := cmd.Flags().GetBool("watch"); watchFlag {
		return watchAndRerun(ctx, &cfg, dirs, invoker, planPath, printer, emitter)
	}
	return nil
}

// runOnce executes the orchestrator for one plan and persists the report.
func runOnce(ctx context.Context, orch *pipeline.Orchestrator, sp *plan.ScenePlan, dirs outputDirs, printer *ui.Printer) error {
	report, runErr := orch.Run(ctx, sp)
	if report != nil {
		if err := pipeline.SaveReport(dirs.root, report); err != nil {
			printer.Error(fmt.Sprintf("saving report: %v", err))
		}
		printReport(report, printer)
	}
	return runErr
}

// resolvePlan loads the plan from --plan-file if given, otherwise asks the
// planner agent and saves the result next to the run's other artifacts.
func resolvePlan(ctx context.Context, cmd *cobra.Command, invoker *anthropic.Invoker, cfg *config.Config, theoremName, theoremDesc, planPath string) (*plan.ScenePlan, error) {
	if f, _ := cmd.Flags().GetString("plan-file"); f != "" {
		return plan.Load(f)
	}

	planner := &plan.Planner{Invoker: invoker, Model: cfg.Model}
	sp, err := planner.Plan(ctx, theoremName, theoremDesc)
	if err != nil {
		return nil, err
	}
	if err := sp.Save(planPath); err != nil {
		return nil, err
	}
	return sp, nil
}

// buildOrchestrator wires the generation, sandbox, repair, narration, and
// assembly stages for one theorem.
func buildOrchestrator(cfg *config.Config, dirs outputDirs, invoker *anthropic.Invoker, sp *plan.ScenePlan, printer *ui.Printer, emitter *telemetry.Emitter) *pipeline.Orchestrator {
	prober := &media.Prober{FFprobePath: cfg.FFprobePath}

	generator := &codegen.Generator{
		Invoker:     invoker,
		Model:       cfg.Model,
		TheoremName: sp.TheoremName,
		TheoremDesc: sp.TheoremDescription,
	}
	executor := &sandbox.Executor{
		ManimPath: cfg.ManimPath,
		MediaDir:  dirs.media,
		Timeout:   time.Duration(cfg.ExecutionTimeoutSeconds) * time.Second,
		Quality:   cfg.Quality,
		Prober:    prober,
		Verbose:   cfg.Verbose,
	}
	loop := &repair.Loop{
		Generator:   generator,
		Executor:    executor,
		MaxAttempts: cfg.MaxAttempts,
		UI:          printer,
		Telemetry:   emitter,
		DebugDir:    dirs.debug,
		CodeDir:     dirs.code,
	}
	narrator := &narrate.GTTS{
		Path:     cfg.TTSPath,
		Language: cfg.Language,
		Prober:   prober,
		Verbose:  cfg.Verbose,
	}
	assembler := &assemble.Assembler{
		FFmpegPath:      cfg.FFmpegPath,
		Prober:          prober,
		RequireComplete: cfg.Strict,
		Verbose:         cfg.Verbose,
	}

	return &pipeline.Orchestrator{
		Repairer:            loop,
		Narrator:            narrator,
		Assembler:           assembler,
		AudioDir:            dirs.audio,
		OutputPath:          filepath.Join(dirs.final, finalVideoName(sp.TheoremName)),
		MaxConcurrentScenes: cfg.MaxConcurrentScenes,
		Strict:              cfg.Strict,
		UI:                  printer,
		Telemetry:           emitter,
	}
}

// watchAndRerun blocks watching the plan file, re-running the pipeline with
// the edited plan until the context is canceled.
func watchAndRerun(ctx context.Context, cfg *config.Config, dirs outputDirs, invoker *anthropic.Invoker, planPath string, printer *ui.Printer, emitter *telemetry.Emitter) error {
	w, err := watch.NewWatcher(planPath)
	if err != nil {
		return fmt.Errorf("starting plan watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("starting plan watcher: %w", err)
	}
	defer w.Stop()

	printer.Info(fmt.Sprintf("watching %s: edit the plan to re-render, ctrl-c to exit", planPath))
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				return nil
			}
			sp, err := plan.Load(planPath)
			if err != nil {
				printer.Error(fmt.Sprintf("reloading plan: %v", err))
				continue
			}
			printer.Info("plan changed, re-rendering")
			orch := buildOrchestrator(cfg, dirs, invoker, sp, printer, emitter)
			if err := runOnce(ctx, orch, sp, dirs, printer); err != nil && ctx.Err() == nil {
				printer.Error(err.Error())
			}
		}
	}
}

// applyRenderOverrides applies CLI flag values to the loaded config.
func applyRenderOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetInt("max-attempts"); v > 0 {
		cfg.MaxAttempts = v
	}
	if v, _ := cmd.Flags().GetInt("max-concurrent"); v > 0 {
		cfg.MaxConcurrentScenes = v
	}
	if v, _ := cmd.Flags().GetInt("timeout"); v > 0 {
		cfg.ExecutionTimeoutSeconds = v
	}
	if v, _ := cmd.Flags().GetBool("strict"); v {
		cfg.Strict = true
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
}

// printReport writes the per-scene outcome table to stderr.
func printReport(r *pipeline.Report, printer *ui.Printer) {
	printer.Info("")
	for _, s := range r.Scenes {
		if s.State == pipeline.SceneSucceeded {
			printer.Info(fmt.Sprintf("scene %d: %s (%d attempt(s))", s.SceneIndex, s.State, s.Attempts))
		} else {
			printer.Error(fmt.Sprintf("scene %d: %s: %s", s.SceneIndex, s.State, s.Reason))
		}
	}
	if r.FinalVideo != "" {
		fmt.Fprintf(os.Stdout, "%s\n", r.FinalVideo)
	}
}

// finalVideoName derives the output file name from the theorem name.
func finalVideoName(theorem string) string {
	return strings.ReplaceAll(theorem, " ", "_") + "_explanation.mp4"
}

// setupSignalContext returns a context that is canceled on SIGINT or
// SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		printer.Info("\nshutting down...")
		cancel()
	}()
	return ctx, cancel
}

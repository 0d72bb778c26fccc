package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/proofreel/internal/anthropic"
	"github.com/papapumpkin/proofreel/internal/config"
	"github.com/papapumpkin/proofreel/internal/plan"
	"github.com/papapumpkin/proofreel/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan <theorem-name> <theorem-description>",
	Short: "Generate a scene plan without rendering anything",
	Long: "Runs only the planner agent and writes the resulting scene plan as\n" +
		"JSON. The saved plan can be hand-edited and fed back to render with\n" +
		"--plan-file.",
	Args: cobra.ExactArgs(2),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringP("output", "o", "scene_plan.json", "where to write the plan")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	printer := ui.New()

	invoker, err := anthropic.New(cfg.AnthropicAPIKey, cfg.Model)
	if err != nil {
		return err
	}
	invoker.Verbose = cfg.Verbose
	if err := invoker.Validate(); err != nil {
		return err
	}

	planner := &plan.Planner{Invoker: invoker, Model: cfg.Model}
	sp, err := planner.Plan(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	if err := sp.Save(outPath); err != nil {
		return err
	}

	printer.Info(fmt.Sprintf("planned %d scene(s) for %q", len(sp.Scenes), sp.TheoremName))
	for _, s := range sp.Scenes {
		printer.Info(fmt.Sprintf("  [%d] %s", s.Index, s.Title))
	}
	printer.Info(fmt.Sprintf("plan written to %s", outPath))
	return nil
}

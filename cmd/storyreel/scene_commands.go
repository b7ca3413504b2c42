package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storyreel/internal/pipeline"
	"storyreel/internal/store"
)

func parseSceneIndex(value string) (int, error) {
	index, err := strconv.Atoi(value)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid scene index %q", value)
	}
	return index, nil
}

func newKeyframeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keyframe <project-id> <scene-index> <start|end>",
		Short: "Generate one keyframe for a scene",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSceneIndex(args[1])
			if err != nil {
				return err
			}
			frame, err := store.ParseFrameType(args[2])
			if err != nil {
				return err
			}
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				row, err := orch.GenerateKeyframe(cmd.Context(), args[0], index, frame)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, row)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %d %s frame: %s\n", index, frame, row.FrameURL(frame))
				return nil
			})
		},
	}
}

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "storyboard <project-id> <scene-index>",
		Short: "Generate the start and end keyframes for a scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				row, err := orch.GenerateStoryboard(cmd.Context(), args[0], index)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, row)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scene %d start frame: %s\n", index, row.StartFrameURL)
				fmt.Fprintf(out, "Scene %d end frame:   %s\n", index, row.EndFrameURL)
				return nil
			})
		},
	}
}

func newDecomposeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "decompose <project-id> <scene-index>",
		Short: "Split a scene's action into start and end visual states",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				states, err := orch.DecomposeAction(cmd.Context(), args[0], index)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, states)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Start: %s\n", states.StartVisual)
				fmt.Fprintf(out, "End:   %s\n", states.EndVisual)
				return nil
			})
		},
	}
}

func newVideoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "video <project-id> <scene-index>",
		Short: "Render a scene video and wait for the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseSceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withRenderingOrchestrator(cmd.Context(), func(orch *pipeline.Orchestrator) error {
				row, err := orch.GenerateSceneVideo(cmd.Context(), args[0], index)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, row)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				status := paint(string(row.Status), renderStatusColor(row.Status), colorize)
				if row.Status == store.RenderCompleted {
					fmt.Fprintf(out, "Scene %d %s: %s\n", index, status, row.VideoURL)
					return nil
				}
				fmt.Fprintf(out, "Scene %d %s\n", index, status)
				return fmt.Errorf("scene %d render %s", index, row.Status)
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show the render ledger for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				report, err := orch.Report(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"project": report.Project,
						"renders": report.Renders,
						"stats":   report.Stats,
					})
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "%s [%s]\n", report.Project.Topic,
					paint(string(report.Project.Status), projectStatusColor(report.Project.Status), colorize))
				if len(report.Renders) == 0 {
					fmt.Fprintln(out, "No scenes yet")
					return nil
				}
				fmt.Fprintln(out, renderRendersTable(report.Renders, colorize))
				fmt.Fprintf(out, "%d/%d scenes completed\n", report.Stats[store.RenderCompleted], len(report.Renders))
				return nil
			})
		},
	}
}

func renderRendersTable(renders []*store.SceneRender, colorize bool) string {
	rows := make([][]string, 0, len(renders))
	for _, r := range renders {
		rows = append(rows, []string{
			strconv.Itoa(r.SceneIndex),
			paint(string(r.Status), renderStatusColor(r.Status), colorize),
			yesNo(r.StartFrameURL != ""),
			yesNo(r.EndFrameURL != ""),
			r.VideoURL,
		})
	}
	return renderTable(
		[]string{"Scene", "Status", "Start", "End", "Video"},
		rows,
		[]columnAlignment{alignRight},
		colorize,
	)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyreel/internal/pipeline"
	"storyreel/internal/store"
)

func newIdeasCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ideas <topic>",
		Short: "Generate three video concepts for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				ideas, err := orch.GenerateIdeas(cmd.Context(), topic)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, ideas)
				}
				rows := make([][]string, 0, len(ideas))
				for i, idea := range ideas {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1),
						idea.Title,
						idea.Metrics.EstimatedEngagement,
						idea.Metrics.ProductionDifficulty,
						idea.VisualStyle,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Title", "Engagement", "Difficulty", "Style"},
					rows,
					[]columnAlignment{alignRight},
					shouldColorize(cmd.OutOrStdout()),
				))
				return nil
			})
		},
	}
}

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect projects",
	}
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	return projectCmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var idea store.Idea

	cmd := &cobra.Command{
		Use:   "create <topic>",
		Short: "Create a project, optionally from a chosen idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			var selected *store.Idea
			if strings.TrimSpace(idea.Title) != "" {
				selected = &idea
			}
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				project, err := orch.CreateProject(cmd.Context(), owner, topic, selected)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, project)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.ID, project.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner recorded on the project")
	cmd.Flags().StringVar(&idea.Title, "idea-title", "", "Title of the selected idea")
	cmd.Flags().StringVar(&idea.Description, "idea-description", "", "Description of the selected idea")
	cmd.Flags().StringVar(&idea.VisualStyle, "visual-style", "", "Visual style of the selected idea")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				projects, err := orch.Store().ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, projects)
				}
				out := cmd.OutOrStdout()
				if len(projects) == 0 {
					fmt.Fprintln(out, "No projects")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{
						p.ID,
						p.Topic,
						paint(string(p.Status), projectStatusColor(p.Status), colorize),
						p.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Topic", "Status", "Created"}, rows, nil, colorize))
				return nil
			})
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its script, assets, and renders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				report, err := orch.Report(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				printReport(cmd, report)
				return nil
			})
		},
	}
}

func printReport(cmd *cobra.Command, report *pipeline.ProjectReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	p := report.Project
	fmt.Fprintf(out, "Project:  %s\n", p.ID)
	fmt.Fprintf(out, "Topic:    %s\n", p.Topic)
	fmt.Fprintf(out, "Status:   %s\n", paint(string(p.Status), projectStatusColor(p.Status), colorize))
	if report.Idea != nil {
		fmt.Fprintf(out, "Idea:     %s\n", report.Idea.Title)
	}
	if report.Script != nil {
		fmt.Fprintf(out, "Script:   %s (v%d, %d scenes, %ds)\n",
			report.Script.Title, report.Script.Version, len(report.Script.Scenes), report.Script.TotalDuration())
	} else {
		fmt.Fprintln(out, "Script:   none")
	}

	if len(report.Assets) > 0 {
		rows := make([][]string, 0, len(report.Assets))
		for _, a := range report.Assets {
			rows = append(rows, []string{a.ID, a.Name, string(a.Type), string(a.Status)})
		}
		fmt.Fprintln(out, renderTable([]string{"Asset", "Name", "Type", "Status"}, rows, nil, colorize))
	}
	if len(report.Renders) > 0 {
		fmt.Fprintln(out, renderRendersTable(report.Renders, colorize))
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storyreel/internal/pipeline"
	"storyreel/internal/services"
	"storyreel/internal/store"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	scriptCmd := &cobra.Command{
		Use:   "script",
		Short: "Generate, save, and show project scripts",
	}
	scriptCmd.AddCommand(newScriptGenerateCommand(ctx))
	scriptCmd.AddCommand(newScriptSaveCommand(ctx))
	scriptCmd.AddCommand(newScriptShowCommand(ctx))
	return scriptCmd
}

func newScriptGenerateCommand(ctx *commandContext) *cobra.Command {
	var ideaDescription string
	var save bool

	cmd := &cobra.Command{
		Use:   "generate <project-id>",
		Short: "Generate a script for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				project, err := orch.Store().GetProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				description := strings.TrimSpace(ideaDescription)
				if description == "" {
					if idea, err := orch.Store().GetIdea(cmd.Context(), projectID); err == nil {
						description = idea.Description
					} else if !errors.Is(err, services.ErrNotFound) {
						return err
					}
				}
				script, err := orch.GenerateScript(cmd.Context(), project.Topic, description)
				if err != nil {
					return err
				}
				if save {
					if script, err = orch.SaveScript(cmd.Context(), projectID, *script); err != nil {
						return err
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, script)
				}
				printScript(cmd, script)
				if save {
					fmt.Fprintf(cmd.OutOrStdout(), "Saved script version %d\n", script.Version)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ideaDescription, "idea", "", "Idea description (defaults to the project's stored idea)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the generated script to the project")
	return cmd
}

func newScriptSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <project-id> <file|->",
		Short: "Save a script JSON document to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd, args[1])
			if err != nil {
				return err
			}
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				saved, err := orch.SaveScript(cmd.Context(), args[0], script)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, saved)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved script version %d (%d scenes)\n", saved.Version, len(saved.Scenes))
				return nil
			})
		},
	}
}

func newScriptShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's saved script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				script, err := orch.Store().GetScript(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, script)
				}
				printScript(cmd, script)
				return nil
			})
		},
	}
}

func readScript(cmd *cobra.Command, source string) (store.Script, error) {
	var reader io.Reader
	if source == "-" {
		reader = cmd.InOrStdin()
	} else {
		file, err := os.Open(source)
		if err != nil {
			return store.Script{}, fmt.Errorf("open script: %w", err)
		}
		defer file.Close()
		reader = file
	}
	var script store.Script
	if err := json.NewDecoder(reader).Decode(&script); err != nil {
		return store.Script{}, fmt.Errorf("decode script: %w", err)
	}
	return script, nil
}

func printScript(cmd *cobra.Command, script *store.Script) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%ds)\n", script.Title, script.TotalDuration())
	rows := make([][]string, 0, len(script.Scenes))
	for i, scene := range script.Scenes {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%ds", scene.Duration),
			scene.Visual,
			strings.Join(scene.Characters, ", "),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Scene", "Length", "Visual", "Characters"},
		rows,
		[]columnAlignment{alignRight, alignRight},
		shouldColorize(out),
	))
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <project-id>",
		Short: "Extract recurring characters, items, and locations from the script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				assets, err := orch.AnalyzeScript(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, assets)
				}
				out := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(out, "No recurring assets found")
					return nil
				}
				rows := make([][]string, 0, len(assets))
				for _, a := range assets {
					rows = append(rows, []string{a.ID, a.Name, string(a.Type), joinInts(a.Appearances)})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Type", "Scenes"}, rows, nil, shouldColorize(out)))
				return nil
			})
		},
	}
}

func newAssetCommand(ctx *commandContext) *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage reference assets",
	}
	assetCmd.AddCommand(&cobra.Command{
		Use:   "generate <asset-id>",
		Short: "Generate the reference image for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(func(orch *pipeline.Orchestrator) error {
				asset, err := orch.GenerateAssetImage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, asset)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %s: %s\n", asset.Name, asset.URL)
				return nil
			})
		},
	})
	return assetCmd
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

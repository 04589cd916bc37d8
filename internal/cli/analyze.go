package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"springforge/internal/analyzer"
	"springforge/internal/config"
	"springforge/internal/fetch"
	"springforge/internal/llm"
	"springforge/internal/scan"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		configPath  string
		basePackage string
		provider    string
		model       string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <source>",
		Short: "Propose a Spring Boot structure without converting",
		Long: "Analyze stops after the structure proposal and prints the target\n" +
			"layout plus the architecture diagram.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(configPath, provider, model, basePackage, 0)
			if err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cmd, settings, args[0], jsonOutput)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to springforge.yaml (default ./springforge.yaml)")
	cmd.Flags().StringVar(&basePackage, "base-package", "", "Java base package for generated code")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: openai, gemini or fake")
	cmd.Flags().StringVar(&model, "model", "", "Model name override")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the proposal as JSON")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, settings config.Settings, source string, jsonOutput bool) error {
	log := newColorLogger()

	client, err := llm.New(ctx, settings.LLMOptions())
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info("fetching %s", source)
	dir, cleanup, err := fetch.New(settings.WorkDirPrefix).Fetch(ctx, source)
	if err != nil {
		return err
	}
	defer cleanup()

	inv, err := scan.Index(dir)
	if err != nil {
		return err
	}
	if inv.Len() == 0 {
		return fmt.Errorf("cli: no source files found in %s", source)
	}

	files, truncated := inv.PromptPaths(settings.MaxPromptFiles)
	log.Info("proposing a Spring Boot structure via %s", settings.Provider)
	prop, err := analyzer.New(client).Propose(ctx, analyzer.Input{
		Files:       files,
		Truncated:   truncated,
		RailsApp:    scan.IsRailsProject(dir),
		BasePackage: settings.BasePackage,
	})
	if err != nil {
		return err
	}
	for _, w := range prop.Warnings {
		log.Warning("%s", w)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(prop)
	}
	printProposal(out, prop)
	return nil
}

// printProposal renders the proposed tree and the diagram in reading
// order.
func printProposal(w io.Writer, prop *analyzer.StructureProposal) {
	fmt.Fprintf(w, "proposed structure (%d files):\n\n", prop.FileCount())
	var lastDir string
	for _, pl := range prop.Flatten() {
		if pl.Dir != lastDir {
			fmt.Fprintf(w, "  %s/\n", strings.TrimSuffix(pl.Dir, "/"))
			lastDir = pl.Dir
		}
		if pl.File.Summary != "" {
			fmt.Fprintf(w, "    %s  (%s)\n", pl.File.Name, pl.File.Summary)
		} else {
			fmt.Fprintf(w, "    %s\n", pl.File.Name)
		}
	}
	if prop.Diagram != "" {
		fmt.Fprintf(w, "\narchitecture diagram:\n\n%s\n", strings.TrimSpace(prop.Diagram))
	}
}

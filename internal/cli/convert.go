package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"springforge/internal/analyzer"
	"springforge/internal/archive"
	"springforge/internal/config"
	"springforge/internal/fetch"
	"springforge/internal/generate"
	"springforge/internal/llm"
	"springforge/internal/mapping"
	"springforge/internal/scan"
	"springforge/internal/translate"
	"springforge/internal/util/jsonutil"
	"springforge/internal/validate"
)

const (
	reviewFileName       = "structure.review.json"
	translationCacheSize = 256
	maxReportedErrors    = 5
)

func newConvertCmd() *cobra.Command {
	var (
		configPath   string
		basePackage  string
		outDir       string
		parallel     int
		provider     string
		model        string
		review       bool
		skipValidate bool
	)

	cmd := &cobra.Command{
		Use:   "convert <source>",
		Short: "Run the full Ruby to Spring Boot conversion",
		Long: "Convert fetches the source (git URL, zip archive or local directory),\n" +
			"proposes a Spring Boot structure, translates every mapped file and\n" +
			"writes a Maven project plus a zip archive.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(configPath, provider, model, basePackage, parallel)
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), cmd, settings, convertOptions{
				source:       args[0],
				outDir:       outDir,
				review:       review,
				skipValidate: skipValidate,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to springforge.yaml (default ./springforge.yaml)")
	cmd.Flags().StringVar(&basePackage, "base-package", "", "Java base package for generated code")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default <source name>-springboot)")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent file translations (default from config)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: openai, gemini or fake")
	cmd.Flags().StringVar(&model, "model", "", "Model name override")
	cmd.Flags().BoolVar(&review, "review", false, "Pause after the proposal and reload edits from "+reviewFileName)
	cmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "Skip the Maven compile check")

	return cmd
}

// resolveSettings layers flag overrides over env, config file and
// defaults, then re-validates the merged result.
func resolveSettings(configPath, provider, model, basePackage string, parallel int) (config.Settings, error) {
	settings, err := config.LoadWithFile(configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if provider != "" {
		settings = settings.WithProvider(provider)
	}
	if model != "" {
		settings.Model = strings.TrimSpace(model)
	}
	if basePackage != "" {
		settings.BasePackage = strings.TrimSpace(basePackage)
	}
	if parallel > 0 {
		settings.Parallelism = parallel
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

type convertOptions struct {
	source       string
	outDir       string
	review       bool
	skipValidate bool
}

func runConvert(ctx context.Context, cmd *cobra.Command, settings config.Settings, opts convertOptions) error {
	log := newColorLogger()

	client, err := llm.New(ctx, settings.LLMOptions())
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info("fetching %s", opts.source)
	dir, cleanup, err := fetch.New(settings.WorkDirPrefix).Fetch(ctx, opts.source)
	if err != nil {
		return err
	}
	defer cleanup()

	inv, err := scan.Index(dir)
	if err != nil {
		return err
	}
	if inv.Len() == 0 {
		return fmt.Errorf("cli: no source files found in %s", opts.source)
	}
	rails := scan.IsRailsProject(dir)
	if rails {
		log.Info("indexed %d files (Rails application)", inv.Len())
	} else {
		log.Info("indexed %d files", inv.Len())
	}

	files, truncated := inv.PromptPaths(settings.MaxPromptFiles)
	log.Info("proposing a Spring Boot structure via %s", settings.Provider)
	prop, err := analyzer.New(client).Propose(ctx, analyzer.Input{
		Files:       files,
		Truncated:   truncated,
		RailsApp:    rails,
		BasePackage: settings.BasePackage,
	})
	if err != nil {
		return err
	}
	for _, w := range prop.Warnings {
		log.Warning("%s", w)
	}
	log.Info("proposed %d files", prop.FileCount())

	if opts.review {
		prop, err = reviewProposal(log, cmd.InOrStdin(), prop)
		if err != nil {
			return err
		}
		log.Info("continuing with %d files after review", prop.FileCount())
	}

	res := mapping.Map(prop, inv.Files())
	for _, w := range res.Warnings {
		log.Warning("%s", w)
	}
	log.Info("%d of %d files mapped to Ruby sources", res.MappedCount(), prop.FileCount())

	appName := projectName(opts.source)
	if appName == "" {
		appName = "project"
	}
	outDir := opts.outDir
	if outDir == "" {
		outDir = appName + "-springboot"
	}
	if err := ensureFreshDir(outDir); err != nil {
		return err
	}

	gen, err := generate.New(translate.New(client, translationCacheSize), inv, outDir, generate.Options{
		BasePackage: settings.BasePackage,
		AppName:     appName,
		Parallelism: settings.Parallelism,
		Progress:    progressLogger(log),
	})
	if err != nil {
		return err
	}
	sum, err := gen.Run(ctx, prop, res.Pairs)
	if err != nil {
		return err
	}
	for _, w := range sum.Warnings {
		log.Warning("%s", w)
	}
	log.Success("generated %d files into %s", sum.Total(), outDir)

	if opts.skipValidate {
		log.Info("validation skipped")
	} else {
		log.Info("checking the generated project with %s", settings.MavenBin)
		rep := validate.Check(ctx, validate.NewMaven(settings.MavenBin, settings.MavenTimeout), outDir)
		reportValidation(log, rep)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	data, err := archive.Build(outDir)
	if err != nil {
		return err
	}
	zipPath := outDir + ".zip"
	if err := os.WriteFile(zipPath, data, 0o644); err != nil {
		return fmt.Errorf("cli: write %s: %w", zipPath, err)
	}
	log.Success("archive written to %s", zipPath)

	printSummary(cmd.OutOrStdout(), outDir, zipPath, sum)
	return nil
}

// reviewProposal writes the proposal to the review file, waits for the
// operator to edit it and loads the edited version back.
func reviewProposal(log *ColorLogger, stdin io.Reader, prop *analyzer.StructureProposal) (*analyzer.StructureProposal, error) {
	data, err := json.MarshalIndent(prop, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cli: encode proposal: %w", err)
	}
	if err := os.WriteFile(reviewFileName, data, 0o644); err != nil {
		return nil, fmt.Errorf("cli: write %s: %w", reviewFileName, err)
	}
	log.Info("proposal written to %s; edit it if needed, then press Enter to continue", reviewFileName)
	if _, err := bufio.NewReader(stdin).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cli: wait for review: %w", err)
	}
	edited, err := os.ReadFile(reviewFileName)
	if err != nil {
		return nil, fmt.Errorf("cli: reload %s: %w", reviewFileName, err)
	}
	var next analyzer.StructureProposal
	if err := jsonutil.UnmarshalFlex(edited, &next); err != nil {
		return nil, fmt.Errorf("cli: parse edited %s: %w", reviewFileName, err)
	}
	if next.FileCount() == 0 {
		return nil, fmt.Errorf("cli: edited proposal in %s has no files", reviewFileName)
	}
	return &next, nil
}

func progressLogger(log *ColorLogger) func(string, generate.Status, string) {
	return func(path string, status generate.Status, detail string) {
		switch status {
		case generate.StatusTranslated:
			log.Info("translated %s", path)
		case generate.StatusFailed:
			log.Warning("%s: %s", path, detail)
		}
	}
}

func reportValidation(log *ColorLogger, rep validate.Report) {
	for _, w := range rep.Warnings {
		log.Warning("%s", w)
	}
	switch {
	case rep.Skipped:
		log.Warning("validation skipped: %s", rep.SkipReason)
	case rep.Passed:
		log.Success("maven compile passed in %s", rep.Duration.Round(time.Millisecond))
	default:
		log.Warning("maven compile reported %d problems", len(rep.Errors))
		for i, e := range rep.Errors {
			if i == maxReportedErrors {
				log.Warning("... and %d more", len(rep.Errors)-maxReportedErrors)
				break
			}
			log.Warning("%s", e)
		}
	}
}

func printSummary(w io.Writer, outDir, zipPath string, sum *generate.Summary) {
	fmt.Fprintf(w, "output:  %s\n", outDir)
	fmt.Fprintf(w, "archive: %s\n", zipPath)
	fmt.Fprintf(w, "%d translated, %d boilerplate, %d copied, %d failed, %d skipped\n",
		sum.Translated, sum.Boiler, sum.Copied, sum.Failed, sum.Skipped)
}

// ensureFreshDir accepts a missing or empty directory and rejects one
// with content, so a rerun cannot mix two generations.
func ensureFreshDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return fmt.Errorf("cli: inspect %s: %w", dir, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("cli: output directory %s is not empty", dir)
	}
	return nil
}

func projectName(source string) string {
	s := strings.ReplaceAll(strings.TrimSpace(source), "\\", "/")
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	base := strings.TrimSuffix(path.Base(s), ".zip")
	if base == "." || base == "/" {
		return ""
	}
	return base
}

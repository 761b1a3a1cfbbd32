package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dshills/nodereview/internal/analysis"
	"github.com/dshills/nodereview/internal/cache"
	"github.com/dshills/nodereview/internal/config"
	"github.com/dshills/nodereview/internal/inflight"
	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/output"
	"github.com/dshills/nodereview/internal/review"
	"github.com/dshills/nodereview/internal/source"
	"github.com/spf13/cobra"
)

// maxConcurrentFiles bounds how many files are processed at once.
const maxConcurrentFiles = 4

// Shared file selection and output flags
var (
	flagPaths         string
	flagExclude       string
	flagStaged        bool
	flagAll           bool
	flagStdinName     string
	flagProvider      string
	flagModel         string
	flagFormat        string
	flagOut           string
	flagFailOn        string
	flagMaxInputChars int
	flagNoRedact      bool
	flagNoCache       bool
	flagRaw           bool
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().BoolVar(&flagStaged, "staged", false, "Use files staged in the git index")
	cmd.Flags().BoolVar(&flagAll, "all", false, "Use all git-tracked files")
	cmd.Flags().StringVar(&flagStdinName, "stdin-name", "", "File name to report for source read from stdin (\"-\")")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, low, medium, high, critical)")
}

func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (groq, openai, anthropic, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().IntVar(&flagMaxInputChars, "max-input-chars", 0, "Truncate source to this many characters before review")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagMaxInputChars > 0 {
		m["maxInputChars"] = strconv.Itoa(flagMaxInputChars)
	}
	if flagNoRedact {
		m["redactSecrets"] = "false"
	}
	if flagNoCache {
		m["cache"] = "false"
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func sourceOptions(cfg config.Config, dir string) source.Options {
	opts := source.Options{
		Dir:        dir,
		Include:    cfg.Include,
		Exclude:    cfg.Exclude,
		Extensions: cfg.Extensions,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

var errNoInput = errors.New("nothing to analyze: pass file paths, a directory, --staged, --all, or - for stdin")

// collectFiles resolves the command input into files. Paths that cannot be
// analyzed are returned as skipped reports.
func collectFiles(ctx context.Context, cfg config.Config, args []string, stdin io.Reader) ([]source.File, []output.FileReport, error) {
	switch {
	case len(args) == 1 && args[0] == "-":
		f, err := source.ReadStdin(stdin, flagStdinName)
		if err != nil {
			return nil, nil, err
		}
		return []source.File{f}, nil, nil
	case flagStaged || flagAll:
		root, err := source.RepoRoot(ctx, "")
		if err != nil {
			return nil, nil, err
		}
		opts := sourceOptions(cfg, root)
		var paths []string
		if flagStaged {
			paths, err = source.Staged(ctx, opts)
		} else {
			paths, err = source.Tracked(ctx, opts)
		}
		if err != nil {
			return nil, nil, err
		}
		files, errs := source.ReadAll(root, paths)
		return files, skippedFromErrors(errs), nil
	case len(args) == 0:
		return nil, nil, errNoInput
	}

	var (
		files   []source.File
		skipped []output.FileReport
	)
	opts := sourceOptions(cfg, "")
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			skipped = append(skipped, output.FileReport{Path: arg, Skipped: err.Error()})
			continue
		}
		if info.IsDir() {
			paths, err := walkDir(arg, opts)
			if err != nil {
				return nil, nil, err
			}
			read, errs := source.ReadAll("", paths)
			files = append(files, read...)
			skipped = append(skipped, skippedFromErrors(errs)...)
			continue
		}
		if !source.Supported(arg, cfg.Extensions) {
			skipped = append(skipped, output.FileReport{Path: arg, Skipped: "unsupported file type"})
			continue
		}
		f, err := source.Read(arg)
		if err != nil {
			skipped = append(skipped, output.FileReport{Path: arg, Skipped: err.Error()})
			continue
		}
		files = append(files, f)
	}
	return files, skipped, nil
}

// walkDir lists the files under root that pass opts, skipping dependency
// and hidden directories.
func walkDir(root string, opts source.Options) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return source.Filter(paths, opts), nil
}

func skippedFromErrors(errs []error) []output.FileReport {
	reports := make([]output.FileReport, 0, len(errs))
	for _, err := range errs {
		p := ""
		var pe *fs.PathError
		if errors.As(err, &pe) {
			p = pe.Path
		}
		reports = append(reports, output.FileReport{Path: p, Skipped: err.Error()})
	}
	return reports
}

// processFiles runs fn over files with bounded concurrency. Results keep
// the input order.
func processFiles(ctx context.Context, files []source.File, fn func(context.Context, source.File) output.FileReport) []output.FileReport {
	results := make([]output.FileReport, len(files))
	sem := make(chan struct{}, maxConcurrentFiles)
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(ctx, f)
		}()
	}
	wg.Wait()
	return results
}

func openCache(cfg config.Config, logger *slog.Logger) *cache.Cache {
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	if err != nil {
		logger.Warn("cache disabled", "error", err)
		c, _ = cache.New(false, "", 0)
	}
	return c
}

func newChecker(cfg config.Config, logger *slog.Logger) *lint.Checker {
	return lint.NewChecker(lint.NewESLint(cfg.Lint), logger)
}

// finish writes the report and sets the exit code. A failed review wins
// over the severity gate since the gate saw incomplete results.
func finish(cfg config.Config, files []output.FileReport, start time.Time) {
	report := &output.Report{
		Tool:       "nodereview",
		Version:    version,
		Files:      files,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	switch {
	case report.Failures() > 0:
		exitCode = ExitRuntimeError
	case report.Exceeds(cfg.FailOn):
		exitCode = ExitFindings
	}
}

// prepare loads config, sets up logging and resolves the input files.
func prepare(cmd *cobra.Command, args []string) (config.Config, *slog.Logger, []source.File, []output.FileReport, bool) {
	cfg, err := config.Load(flagConfig, buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return cfg, nil, nil, nil, false
	}
	logger := setupLogging(cfg.LogLevel, flagVerbose)
	files, skipped, err := collectFiles(cmd.Context(), cfg, args, cmd.InOrStdin())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errNoInput) {
			exitCode = ExitUsageError
		} else {
			exitCode = ExitRuntimeError
		}
		return cfg, logger, nil, nil, false
	}
	return cfg, logger, files, skipped, true
}

func newReviewer(cfg config.Config, logger *slog.Logger) (*review.Reviewer, bool) {
	if !cfg.Privacy.RedactSecrets {
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}
	reviewer := review.FromConfig(cfg, openCache(cfg, logger), logger)
	if err := reviewer.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitAuthError
		return nil, false
	}
	return reviewer, true
}

var reviewCmd = &cobra.Command{
	Use:   "review [paths... | -]",
	Short: "Review JavaScript files with an LLM",
	Long: "Send each file to the configured LLM provider, validate the structured response, " +
		"and report the score, metrics and issues. A failed review is reported with a fallback score of 0.",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		cfg, logger, files, skipped, ok := prepare(cmd, args)
		if !ok {
			return nil
		}
		reviewer, ok := newReviewer(cfg, logger)
		if !ok {
			return nil
		}
		reports := processFiles(cmd.Context(), files, func(ctx context.Context, f source.File) output.FileReport {
			env := reviewer.ReviewFile(ctx, f.Path, f.Content)
			return output.FileReport{Path: f.Path, Review: &env}
		})
		finish(cfg, append(reports, skipped...), start)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [paths... | -]",
	Short: "Run ESLint over JavaScript files",
	Long: "Run the configured ESLint rules over each file. Findings are normalized " +
		"(unattributable findings dropped, duplicates removed) unless --raw is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		cfg, logger, files, skipped, ok := prepare(cmd, args)
		if !ok {
			return nil
		}
		checker := newChecker(cfg, logger)
		reports := processFiles(cmd.Context(), files, func(ctx context.Context, f source.File) output.FileReport {
			findings := checker.Check(ctx, f.Content)
			if !flagRaw {
				findings = lint.Normalize(findings)
			}
			if findings == nil {
				findings = []lint.Finding{}
			}
			return output.FileReport{Path: f.Path, Findings: findings}
		})
		finish(cfg, append(reports, skipped...), start)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths... | -]",
	Short: "Review and check JavaScript files concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		cfg, logger, files, skipped, ok := prepare(cmd, args)
		if !ok {
			return nil
		}
		reviewer, ok := newReviewer(cfg, logger)
		if !ok {
			return nil
		}
		analyzer := analysis.New(reviewer, newChecker(cfg, logger), inflight.NewRegistry(), cfg.Extensions, logger)
		reports := processFiles(cmd.Context(), files, func(ctx context.Context, f source.File) output.FileReport {
			v, err := analyzer.Analyze(ctx, f, false)
			if err != nil {
				return output.FileReport{Path: f.Path, Skipped: err.Error()}
			}
			return output.FileReport{Path: f.Path, Review: v.Review, Findings: v.Findings}
		})
		finish(cfg, append(reports, skipped...), start)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{reviewCmd, checkCmd, analyzeCmd} {
		addSourceFlags(cmd)
	}
	addProviderFlags(reviewCmd)
	addProviderFlags(analyzeCmd)
	checkCmd.Flags().BoolVar(&flagRaw, "raw", false, "Print findings exactly as ESLint reported them")
}

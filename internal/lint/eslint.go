package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/dshills/nodereview/internal/config"
)

const stdinFilename = "input.js"

// runner executes argv with stdin and reports stdout, stderr and the exit
// code. err is only set when the process could not be run at all.
type runner func(ctx context.Context, argv []string, stdin string) (stdout, stderr []byte, code int, err error)

// ESLint lints source by piping it to the eslint CLI.
type ESLint struct {
	command     []string
	rules       map[string]string
	ecmaVersion string
	sourceType  string
	timeout     time.Duration
	run         runner
}

// NewESLint creates an ESLint linter from configuration.
func NewESLint(cfg config.LintConfig) *ESLint {
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &ESLint{
		command:     cfg.Command,
		rules:       cfg.Rules,
		ecmaVersion: cfg.EcmaVersion,
		sourceType:  cfg.SourceType,
		timeout:     timeout,
		run:         execRunner,
	}
}

// Args returns the full command line used for a lint run.
func (e *ESLint) Args() []string {
	argv := append([]string{}, e.command...)
	argv = append(argv,
		"--stdin",
		"--stdin-filename", stdinFilename,
		"--format", "json",
		"--no-config-lookup",
	)

	names := make([]string, 0, len(e.rules))
	for name := range e.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		argv = append(argv, "--rule", name+": "+e.rules[name])
	}

	if e.ecmaVersion != "" {
		argv = append(argv, "--parser-options", "ecmaVersion:"+e.ecmaVersion)
	}
	if e.sourceType != "" {
		argv = append(argv, "--parser-options", "sourceType:"+e.sourceType)
	}
	return argv
}

// eslintResult is one entry of eslint's JSON formatter output.
type eslintResult struct {
	FilePath string    `json:"filePath"`
	Messages []Finding `json:"messages"`
}

// Lint runs eslint over source. Exit code 1 means problems were found and is
// not an error.
func (e *ESLint) Lint(ctx context.Context, source string) ([]Finding, error) {
	if len(e.command) == 0 {
		return nil, errors.New("eslint command is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stdout, stderr, code, err := e.run(ctx, e.Args(), source)
	if err != nil {
		return nil, fmt.Errorf("running eslint: %w", err)
	}
	if code != 0 && code != 1 {
		return nil, fmt.Errorf("eslint exited with code %d: %s", code, strings.TrimSpace(string(stderr)))
	}
	return parseOutput(stdout)
}

func parseOutput(stdout []byte) ([]Finding, error) {
	var results []eslintResult
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &results); err != nil {
		return nil, fmt.Errorf("decoding eslint output: %w", err)
	}
	findings := []Finding{}
	for _, r := range results {
		findings = append(findings, r.Messages...)
	}
	return findings, nil
}

func execRunner(ctx context.Context, argv []string, stdin string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, stderr.Bytes(), -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

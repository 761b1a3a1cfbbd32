package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	hookMarkerStart = "# >>> nodereview pre-commit hook >>>"
	hookMarkerEnd   = "# <<< nodereview pre-commit hook <<<"
)

var (
	hookFailOn    string
	hookFormat    string
	hookCheckOnly bool
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install nodereview as a git pre-commit hook",
	Long: "Add a section to .git/hooks/pre-commit that analyzes staged JavaScript files. " +
		"Findings at or above --fail-on block the commit; review errors only warn.",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := hookFilePath(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		subcommand := "analyze"
		if hookCheckOnly {
			subcommand = "check"
		}
		section := hookSection(subcommand, hookFailOn, hookFormat)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		var content string
		if len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating hooks directory: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Installed nodereview pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove nodereview pre-commit hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := hookFilePath(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(os.Stdout, "No pre-commit hook found.")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		content := removeHookSection(string(existing))

		// Nothing but a shebang left: remove the file.
		if onlyShebang(content) {
			if err := os.Remove(hookPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing hook file: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			fmt.Fprintf(os.Stdout, "Removed nodereview pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Removed nodereview section from %s\n", hookPath)
		return nil
	},
}

func hookFilePath(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--git-path", "hooks").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse failed)")
	}
	return filepath.Join(strings.TrimSpace(string(out)), "pre-commit"), nil
}

func hookSection(subcommand, failOn, format string) string {
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	fmt.Fprintf(&b, "nodereview %s --staged --fail-on %s --format %s\n", subcommand, failOn, format)
	b.WriteString("NODEREVIEW_EXIT=$?\n")
	b.WriteString("if [ $NODEREVIEW_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"nodereview: findings above threshold, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $NODEREVIEW_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"nodereview: review did not complete (exit $NODEREVIEW_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

// replaceHookSection swaps the marked section in existing for section, or
// appends it when no section is present.
func replaceHookSection(existing, section string) string {
	start, end, ok := hookBounds(existing)
	if !ok {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}
	return existing[:start] + section + existing[end:]
}

func removeHookSection(existing string) string {
	start, end, ok := hookBounds(existing)
	if !ok {
		return existing
	}
	return existing[:start] + existing[end:]
}

// hookBounds locates the marked section, including the newline after the
// end marker.
func hookBounds(s string) (start, end int, ok bool) {
	start = strings.Index(s, hookMarkerStart)
	if start == -1 {
		return 0, 0, false
	}
	rel := strings.Index(s[start:], hookMarkerEnd)
	if rel == -1 {
		return 0, 0, false
	}
	end = start + rel + len(hookMarkerEnd)
	if end < len(s) && s[end] == '\n' {
		end++
	}
	return start, end, true
}

func onlyShebang(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash"
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookFailOn, "fail-on", "high", "Fail on severity threshold (none, low, medium, high, critical)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown, sarif)")
	hookInstallCmd.Flags().BoolVar(&hookCheckOnly, "check-only", false, "Run only ESLint checks, without the LLM review")
}

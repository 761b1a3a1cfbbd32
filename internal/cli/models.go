package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dshills/nodereview/internal/config"
	"github.com/dshills/nodereview/internal/providers"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

type modelInfo struct {
	Provider string
	Models   []string
}

var knownModels = []modelInfo{
	{
		Provider: "groq",
		Models: []string{
			"moonshotai/kimi-k2-instruct-0905",
			"llama-3.3-70b-versatile",
			"openai/gpt-oss-120b",
			"qwen/qwen3-32b",
		},
	},
	{
		Provider: "openai",
		Models: []string{
			"gpt-4.1",
			"gpt-4.1-mini",
			"o3-mini",
		},
	},
	{
		Provider: "anthropic",
		Models: []string{
			"claude-sonnet-4-5",
			"claude-haiku-4-5",
		},
	},
	{
		Provider: "gemini",
		Models: []string{
			"gemini-2.5-flash",
			"gemini-2.5-pro",
		},
	},
	{
		Provider: "ollama",
		Models: []string{
			"qwen2.5-coder",
			"llama3.3",
			"codellama",
		},
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known providers and models",
	Long:  "List known providers and models. The configured default is marked with *.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}
		printModels(cmd.OutOrStdout(), cfg.Provider, flagProvider)
		return nil
	},
}

// printModels writes knownModels, optionally limited to one provider.
func printModels(w io.Writer, current config.ProviderConfig, only string) {
	for _, info := range knownModels {
		if only != "" && info.Provider != only {
			continue
		}
		fmt.Fprintf(w, "%s:\n", info.Provider)
		for _, m := range info.Models {
			mark := " "
			if info.Provider == current.Name && m == current.Model {
				mark = "*"
			}
			fmt.Fprintf(w, " %s %s\n", mark, m)
		}
		fmt.Fprintln(w)
	}
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, buildOverrides())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Checking %s (%s)...\n", cfg.Provider.Name, cfg.Provider.Model)

		p, err := providers.New(cfg.Provider)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		_, err = p.Complete(ctx, providers.Request{
			SystemPrompt: "Respond with exactly: ok",
			UserPrompt:   "ping",
			MaxTokens:    10,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if providers.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(os.Stdout, "OK: %s is configured and responding\n", p.Name())
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsListCmd.Flags().StringVar(&flagProvider, "provider", "", "Only list models for this provider")
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
}

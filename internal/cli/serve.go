package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/nodereview/internal/analysis"
	"github.com/dshills/nodereview/internal/config"
	"github.com/dshills/nodereview/internal/inflight"
	"github.com/dshills/nodereview/internal/review"
	"github.com/dshills/nodereview/internal/server"
	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review and check HTTP API",
	Long: "Start an HTTP server exposing POST /api/review, POST /api/codecheck/node and " +
		"POST /api/analyze. Review failures are returned as failure envelopes, never as transport errors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := buildOverrides()
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, err := config.Load(flagConfig, overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		logger := setupLogging(cfg.LogLevel, flagVerbose)

		reviewer := review.FromConfig(cfg, openCache(cfg, logger), logger)
		if err := reviewer.Err(); err != nil {
			// Reviews answer with failure envelopes until the config is fixed.
			logger.Warn("reviews will fail", "error", err)
		}
		checker := newChecker(cfg, logger)
		registry := inflight.NewRegistry()
		analyzer := analysis.New(reviewer, checker, registry, cfg.Extensions, logger)
		srv := server.New(reviewer, checker, analyzer, registry, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.ListenAndServe(ctx, cfg.Server); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :8080)")
	addProviderFlags(serveCmd)
}

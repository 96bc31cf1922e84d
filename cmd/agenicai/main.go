// Package main provides the agenicai binary: the analysis API server plus
// one-shot commands for classifying queries, running the agent sequence in
// the foreground and exporting reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/sozercan/agenicai/apimodels"
	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/config"
	"github.com/sozercan/agenicai/internal/report"
	"github.com/sozercan/agenicai/internal/scope"
	"github.com/sozercan/agenicai/internal/server"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "agenicai"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Pharmaceutical research agent orchestrator",
		Long: `AgenicAI classifies pharmaceutical research queries and runs them through
a fixed team of research agents, reporting progress as the agents complete
and exporting the results as HTML, PDF or a slide outline.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, JSON or TOML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(opts),
		classifyCmd(),
		runCmd(opts),
		exportCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func setupLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			app, err := NewApp(cfg)
			if err != nil {
				return err
			}
			defer app.Shutdown(5 * time.Second)

			srv := server.New(*cfg, app.analyzer, server.WithMetrics(app.metrics))
			slog.Info("AgenicAI ready", "version", Version, "runner", cfg.Sequencer.AgentRunner, "policy", cfg.Sequencer.RunPolicy)
			return srv.Run(cmd.Context())
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <query...>",
		Short: "Print the scope verdict for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return writeJSON(cmd.OutOrStdout(), apimodels.ClassifyResponse{
				Verdict:         scope.Classify(query),
				MatchedKeywords: scope.MatchedKeywords(query),
			})
		},
	}
}

func runCmd(opts *rootOptions) *cobra.Command {
	var stepDelay, reportDelay time.Duration

	cmd := &cobra.Command{
		Use:   "run <query...>",
		Short: "Run the agent sequence in the foreground and print each snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("step-delay") {
				cfg.Sequencer.StepDelay = stepDelay
			}
			if cmd.Flags().Changed("report-delay") {
				cfg.Sequencer.ReportDelay = reportDelay
			}

			query := strings.Join(args, " ")
			verdict := scope.Classify(query)
			if !verdict.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), verdict.Message)
				return fmt.Errorf("query is out of scope")
			}

			app, err := NewApp(cfg)
			if err != nil {
				return err
			}
			defer app.Shutdown(5 * time.Second)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runForeground(ctx, app, query, verdict.Agents, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&stepDelay, "step-delay", 1200*time.Millisecond, "Delay before each work agent completes")
	cmd.Flags().DurationVar(&reportDelay, "report-delay", 800*time.Millisecond, "Delay before the report generator completes")

	return cmd
}

// runForeground executes one run on the calling goroutine while a second
// goroutine prints its snapshots as they are emitted.
func runForeground(ctx context.Context, app *App, query string, workAgents []string, out io.Writer) error {
	run := app.sequencer.NewRun(query, workAgents)
	snapshots, unsubscribe := run.Subscribe()
	defer unsubscribe()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for snap := range snapshots {
			fmt.Fprintf(out, "[%d] %s\n", snap.Seq, formatStatuses(snap.Statuses))
		}
	}()

	err := app.sequencer.Execute(ctx, run)
	<-printed
	if err != nil {
		return fmt.Errorf("run %s cancelled: %w", run.ID, err)
	}

	view := run.View()
	for _, line := range view.Summary {
		fmt.Fprintf(out, "  %s\n", line)
	}
	if view.Partial {
		return fmt.Errorf("run %s finished with failed agents: %d", run.ID, len(view.Failures))
	}
	return nil
}

func formatStatuses(statuses agents.StatusMap) string {
	parts := make([]string, 0, len(agents.Roster))
	for _, a := range agents.Roster {
		parts = append(parts, fmt.Sprintf("%s=%s", a.ID, statuses[a.Name]))
	}
	return strings.Join(parts, " ")
}

func exportCmd() *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an analysis report artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := exportArtifact(clockwork.NewRealClock(), report.Format(format), outDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatPDF), "Report format (html, pdf, slides)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")

	return cmd
}

func exportArtifact(clock clockwork.Clock, format report.Format, outDir string) (string, error) {
	now := clock.Now()
	art, err := report.Render(format, report.Default(now), now)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outDir, art.Filename)
	if err := os.WriteFile(path, art.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("Report exported", "format", format, "path", path, "bytes", len(art.Body))
	return path, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

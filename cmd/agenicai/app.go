package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/analyzer"
	"github.com/sozercan/agenicai/internal/config"
	"github.com/sozercan/agenicai/internal/knowledge"
	"github.com/sozercan/agenicai/internal/llm"
	"github.com/sozercan/agenicai/internal/metrics"
	"github.com/sozercan/agenicai/internal/notify"
	"github.com/sozercan/agenicai/internal/report"
	"github.com/sozercan/agenicai/internal/sequencer"
)

// App holds the components shared by the serve and run commands.
type App struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	notifier  *notify.Notifier
	sequencer *sequencer.Sequencer
	analyzer  *analyzer.Analyzer
}

func NewApp(cfg *config.Config) (*App, error) {
	runner, err := newRunner(cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	seq := sequencer.New(
		sequencer.WithRunner(runner),
		sequencer.WithDelays(cfg.Sequencer.StepDelay, cfg.Sequencer.ReportDelay),
		sequencer.WithSummary(report.Highlights),
		sequencer.WithObserver(m),
		sequencer.WithObserver(notifier),
	)

	a := analyzer.New(seq,
		analyzer.WithPolicy(cfg.Sequencer.RunPolicy),
		analyzer.WithMaxActive(cfg.Sequencer.MaxActiveRuns),
		analyzer.WithTTL(cfg.Sequencer.RunTTL, clockwork.NewRealClock()),
		analyzer.WithRunnerName(cfg.Sequencer.AgentRunner),
	)

	return &App{
		cfg:       cfg,
		metrics:   m,
		notifier:  notifier,
		sequencer: seq,
		analyzer:  a,
	}, nil
}

// Shutdown cancels in-flight runs, then flushes the notification sinks so
// their cancellation events are delivered.
func (a *App) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.analyzer.Shutdown(ctx); err != nil {
		slog.Warn("Active runs did not stop in time", "error", err)
	}
	if err := a.notifier.Close(ctx); err != nil {
		slog.Warn("Failed to close notifier", "error", err)
	}
}

func newRunner(cfg *config.Config) (agents.Runner, error) {
	var runner agents.Runner = agents.CannedRunner{}

	if cfg.Sequencer.AgentRunner == config.RunnerLLM {
		provider, err := llm.NewOpenAI(&cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		runner = agents.NewLLMRunner(provider, llm.WithModel(cfg.OpenAI.Model))
	}

	if cfg.Knowledge.GraphQLEndpoint == "" {
		return runner, nil
	}

	client, err := knowledge.NewClient(cfg.Knowledge.GraphQLEndpoint, cfg.Knowledge.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create knowledge client: %w", err)
	}
	return agents.NewRouter(runner).Route(agents.InternalKnowledge, agents.NewKnowledgeRunner(client)), nil
}

func newNotifier(cfg *config.Config) (*notify.Notifier, error) {
	sinks := []notify.Sink{notify.NewLogSink(slog.Default())}

	if cfg.NATS.URL != "" {
		sink, err := notify.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		slog.Info("Publishing run events to NATS", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		sinks = append(sinks, sink)
	}

	return notify.New(5*time.Second, sinks...), nil
}

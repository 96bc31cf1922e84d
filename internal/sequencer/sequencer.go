// Package sequencer drives analysis runs through a fixed, timed state
// machine. Each run starts with every work agent running, completes the work
// agents one at a time and finishes with the report generator.
package sequencer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/sozercan/agenicai/internal/agents"
)

// Observer is notified of run lifecycle events. Calls are made from the
// goroutine executing the run and must not block.
type Observer interface {
	RunStarted(run *Run)
	StepApplied(run *Run, agent string, status agents.Status)
	RunFinished(run *Run)
}

type Sequencer struct {
	clock       clockwork.Clock
	runner      agents.Runner
	stepDelay   time.Duration
	reportDelay time.Duration
	summary     []string
	observers   []Observer
}

type Option func(*Sequencer)

func WithClock(c clockwork.Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

func WithRunner(r agents.Runner) Option {
	return func(s *Sequencer) { s.runner = r }
}

func WithDelays(step, report time.Duration) Option {
	return func(s *Sequencer) {
		s.stepDelay = step
		s.reportDelay = report
	}
}

// WithSummary sets the highlights attached to runs that complete.
func WithSummary(lines []string) Option {
	return func(s *Sequencer) { s.summary = lines }
}

func WithObserver(o Observer) Option {
	return func(s *Sequencer) { s.observers = append(s.observers, o) }
}

func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		clock:       clockwork.NewRealClock(),
		runner:      agents.CannedRunner{},
		stepDelay:   DefaultStepDelay,
		reportDelay: DefaultReportDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan returns the plan a run over workAgents follows with this sequencer's
// delays.
func (s *Sequencer) Plan(workAgents []string) Plan {
	return NewPlan(workAgents, s.stepDelay, s.reportDelay)
}

// NewRun prepares a run for workAgents without starting it.
func (s *Sequencer) NewRun(query string, workAgents []string) *Run {
	return newRun(uuid.New().String(), query, workAgents, s.Plan(workAgents))
}

// Start executes run in the background. The run is cancelled when ctx is.
func (s *Sequencer) Start(ctx context.Context, run *Run) {
	ctx, cancel := context.WithCancel(ctx)
	run.setCancel(cancel)
	go func() {
		_ = s.Execute(ctx, run)
	}()
}

// Execute drives run to completion on the calling goroutine. It returns the
// context error when the run was cancelled.
func (s *Sequencer) Execute(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	run.mu.Lock()
	if run.cancel == nil {
		run.cancel = cancel
	}
	run.mu.Unlock()

	logger := slog.With("run_id", run.ID)
	logger.Info("Starting run", "query", run.Query, "agents", len(run.Agents))

	run.begin(s.clock.Now())
	for _, o := range s.observers {
		o.RunStarted(run)
	}

	for _, tr := range run.plan.Transitions {
		if err := s.wait(ctx, tr.Delay); err != nil {
			return s.cancelled(run, logger, err)
		}

		status := tr.To
		if tr.Invoke && s.runner != nil {
			res, err := s.runner.RunAgent(ctx, tr.Agent, run.Query)
			// a cancel that arrived while the runner was busy wins over its result
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.cancelled(run, logger, ctxErr)
			}
			if err != nil {
				logger.Warn("Agent failed", "agent", tr.Agent, "error", err)
				run.recordFailure(tr.Agent, err)
				status = agents.StatusFailed
			} else {
				if res.Agent == "" {
					res.Agent = tr.Agent
				}
				run.record(res)
			}
		}

		if _, ok := run.apply(ctx, tr.Agent, status, s.clock.Now()); !ok {
			if err := ctx.Err(); err != nil {
				return s.cancelled(run, logger, err)
			}
			continue
		}
		logger.Debug("Applied transition", "agent", tr.Agent, "status", status)
		for _, o := range s.observers {
			o.StepApplied(run, tr.Agent, status)
		}
	}

	if run.finish(StateCompleted, s.clock.Now(), s.summary) {
		logger.Info("Run complete", "duration", run.Duration(), "partial", run.View().Partial)
		s.notifyFinished(run)
	}
	return nil
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Sequencer) cancelled(run *Run, logger *slog.Logger, err error) error {
	if run.finish(StateCancelled, s.clock.Now(), nil) {
		logger.Info("Run cancelled", "reason", err)
		s.notifyFinished(run)
	}
	return err
}

func (s *Sequencer) notifyFinished(run *Run) {
	for _, o := range s.observers {
		o.RunFinished(run)
	}
	run.markDone()
}

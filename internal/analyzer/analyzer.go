package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sozercan/agenicai/apimodels"
	"github.com/sozercan/agenicai/internal/config"
	"github.com/sozercan/agenicai/internal/scope"
	"github.com/sozercan/agenicai/internal/sequencer"
)

var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrRunInProgress = errors.New("an analysis run is already in progress")
	ErrTooManyRuns   = errors.New("too many active analysis runs")
	ErrRunNotFound   = errors.New("run not found")
)

type Analyzer struct {
	seq        *sequencer.Sequencer
	store      *runStore
	policy     string
	maxActive  int
	runnerName string

	// serialises admission so policy checks and inserts are atomic
	mu sync.Mutex
}

type Option func(*Analyzer)

// WithPolicy sets how overlapping runs are handled: config.PolicyAllow lets
// them proceed independently, config.PolicyReject refuses a new run while
// another is active.
func WithPolicy(policy string) Option {
	return func(a *Analyzer) { a.policy = policy }
}

// WithMaxActive caps concurrent runs. Zero means unlimited.
func WithMaxActive(n int) Option {
	return func(a *Analyzer) { a.maxActive = n }
}

func WithTTL(ttl time.Duration, clock clockwork.Clock) Option {
	return func(a *Analyzer) { a.store = newRunStore(ttl, clock) }
}

// WithRunnerName names the configured agent runner in responses.
func WithRunnerName(runner string) Option {
	return func(a *Analyzer) { a.runnerName = runner }
}

func New(seq *sequencer.Sequencer, opts ...Option) *Analyzer {
	a := &Analyzer{
		seq:        seq,
		store:      newRunStore(0, clockwork.NewRealClock()),
		policy:     config.PolicyAllow,
		runnerName: config.RunnerCanned,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify reports the scope verdict and the keywords that matched.
func (a *Analyzer) Classify(query string) apimodels.ClassifyResponse {
	return apimodels.ClassifyResponse{
		Verdict:         scope.Classify(query),
		MatchedKeywords: scope.MatchedKeywords(query),
	}
}

// Analyze classifies the query and, when it is in scope, starts a run in the
// background. Out-of-scope queries are not an error: the response carries
// the verdict and no run.
func (a *Analyzer) Analyze(ctx context.Context, req apimodels.AnalysisRequest) (*apimodels.AnalysisResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	verdict := scope.Classify(query)
	if !verdict.Valid {
		slog.Info("Rejecting out-of-scope query", "query", query)
		return &apimodels.AnalysisResponse{Verdict: verdict}, nil
	}

	run, err := a.admit(query, verdict.Agents)
	if err != nil {
		return nil, err
	}

	// the run outlives the request that started it
	a.seq.Start(context.WithoutCancel(ctx), run)
	slog.Info("Started analysis", "run_id", run.ID, "query", query)

	view := run.View()
	plan := a.seq.Plan(verdict.Agents)
	return &apimodels.AnalysisResponse{
		Verdict: verdict,
		Run:     &view,
		Metadata: &apimodels.AnalysisMetadata{
			Runner:            a.runnerName,
			Steps:             plan.Snapshots(),
			EstimatedDuration: plan.Duration().String(),
		},
	}, nil
}

func (a *Analyzer) admit(query string, workAgents []string) (*sequencer.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	active := a.store.Active()
	if a.policy == config.PolicyReject && active > 0 {
		return nil, ErrRunInProgress
	}
	if a.maxActive > 0 && active >= a.maxActive {
		return nil, fmt.Errorf("%w: %d of %d", ErrTooManyRuns, active, a.maxActive)
	}

	run := a.seq.NewRun(query, workAgents)
	a.store.Put(run)
	return run, nil
}

func (a *Analyzer) Get(id string) (*sequencer.Run, error) {
	run, ok := a.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// Cancel stops a run. Cancelling a finished run is a no-op.
func (a *Analyzer) Cancel(id string) (*sequencer.Run, error) {
	run, err := a.Get(id)
	if err != nil {
		return nil, err
	}
	run.Cancel()
	slog.Info("Cancel requested", "run_id", id, "state", run.State())
	return run, nil
}

func (a *Analyzer) List() []sequencer.View {
	runs := a.store.List()
	views := make([]sequencer.View, 0, len(runs))
	for _, r := range runs {
		views = append(views, r.View())
	}
	return views
}

// Shutdown cancels every active run and waits until each has finished or ctx
// is done, so observers see the cancellations.
func (a *Analyzer) Shutdown(ctx context.Context) error {
	active := a.store.Running()
	if len(active) == 0 {
		return nil
	}
	slog.Info("Cancelling active runs", "count", len(active))
	for _, run := range active {
		run.Cancel()
	}
	for _, run := range active {
		select {
		case <-run.Done():
		case <-ctx.Done():
			return fmt.Errorf("waiting for run %s to stop: %w", run.ID, ctx.Err())
		}
	}
	return nil
}

package analyzer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sozercan/agenicai/apimodels"
	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/config"
	"github.com/sozercan/agenicai/internal/scope"
	"github.com/sozercan/agenicai/internal/sequencer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitDone(t *testing.T, run *sequencer.Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

// slowSequencer never advances on its own, so runs stay active until cancelled.
func slowSequencer() *sequencer.Sequencer {
	return sequencer.New(
		sequencer.WithClock(clockwork.NewFakeClock()),
		sequencer.WithDelays(time.Second, time.Second),
	)
}

func cancelAll(t *testing.T, a *Analyzer) {
	t.Helper()
	for _, v := range a.List() {
		run, err := a.Cancel(v.ID)
		require.NoError(t, err)
		waitDone(t, run)
	}
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	a := New(sequencer.New(sequencer.WithDelays(0, 0)))

	_, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, a.List())
}

func TestAnalyzeOutOfScope(t *testing.T) {
	a := New(sequencer.New(sequencer.WithDelays(0, 0)))

	resp, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "what is the weather today"})
	require.NoError(t, err)
	assert.False(t, resp.Verdict.Valid)
	assert.Equal(t, scope.OutOfScope, resp.Verdict.Scope)
	assert.Nil(t, resp.Run)
	assert.Nil(t, resp.Metadata)
	assert.Empty(t, a.List())
}

func TestAnalyzeRunsToCompletion(t *testing.T) {
	a := New(
		sequencer.New(sequencer.WithDelays(0, 0), sequencer.WithSummary([]string{"ok"})),
		WithRunnerName(config.RunnerCanned),
	)

	resp, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "  oncology drug pipeline  "})
	require.NoError(t, err)
	require.True(t, resp.Verdict.Valid)
	require.NotNil(t, resp.Run)
	assert.Equal(t, "oncology drug pipeline", resp.Run.Query)
	assert.Equal(t, agents.WorkAgents(), resp.Run.Agents)

	require.NotNil(t, resp.Metadata)
	assert.Equal(t, config.RunnerCanned, resp.Metadata.Runner)
	assert.Equal(t, 8, resp.Metadata.Steps)
	assert.Equal(t, "0s", resp.Metadata.EstimatedDuration)

	run, err := a.Get(resp.Run.ID)
	require.NoError(t, err)
	waitDone(t, run)

	assert.Equal(t, sequencer.StateCompleted, run.State())
	statuses := run.Statuses()
	for _, ag := range agents.Roster {
		assert.Equal(t, agents.StatusCompleted, statuses[ag.Name], ag.Name)
	}
	assert.Equal(t, []string{"ok"}, run.View().Summary)
}

func TestAnalyzeSurvivesRequestCancellation(t *testing.T) {
	a := New(sequencer.New(sequencer.WithDelays(0, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := a.Analyze(ctx, apimodels.AnalysisRequest{Query: "clinical trial"})
	require.NoError(t, err)
	cancel()

	run, err := a.Get(resp.Run.ID)
	require.NoError(t, err)
	waitDone(t, run)
	assert.Equal(t, sequencer.StateCompleted, run.State())
}

func TestEstimateFollowsSequencerDelays(t *testing.T) {
	a := New(slowSequencer(), WithRunnerName(config.RunnerLLM))
	defer cancelAll(t, a)

	resp, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "drug pricing"})
	require.NoError(t, err)
	require.NotNil(t, resp.Metadata)
	assert.Equal(t, config.RunnerLLM, resp.Metadata.Runner)
	assert.Equal(t, 8, resp.Metadata.Steps)
	assert.Equal(t, "7s", resp.Metadata.EstimatedDuration)
}

type finishedRecorder struct {
	mu     sync.Mutex
	states []sequencer.State
}

func (r *finishedRecorder) RunStarted(*sequencer.Run)                         {}
func (r *finishedRecorder) StepApplied(*sequencer.Run, string, agents.Status) {}
func (r *finishedRecorder) RunFinished(run *sequencer.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, run.State())
}

func TestShutdownCancelsActiveRuns(t *testing.T) {
	rec := &finishedRecorder{}
	seq := sequencer.New(
		sequencer.WithClock(clockwork.NewFakeClock()),
		sequencer.WithDelays(time.Second, time.Second),
		sequencer.WithObserver(rec),
	)
	a := New(seq)

	for _, q := range []string{"drug pricing", "market access"} {
		_, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: q})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))

	for _, v := range a.List() {
		assert.Equal(t, sequencer.StateCancelled, v.State)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []sequencer.State{sequencer.StateCancelled, sequencer.StateCancelled}, rec.states)

	// nothing left to stop
	require.NoError(t, a.Shutdown(ctx))
}

func TestRejectPolicy(t *testing.T) {
	a := New(slowSequencer(), WithPolicy(config.PolicyReject))
	defer cancelAll(t, a)

	_, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "drug pricing"})
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "market access"})
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Len(t, a.List(), 1)
}

func TestAllowPolicyWithCap(t *testing.T) {
	a := New(slowSequencer(), WithMaxActive(2))
	defer cancelAll(t, a)

	for _, q := range []string{"drug pricing", "market access"} {
		_, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: q})
		require.NoError(t, err)
	}

	_, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "patent cliff"})
	assert.ErrorIs(t, err, ErrTooManyRuns)

	views := a.List()
	require.Len(t, views, 2)
	assert.Equal(t, "drug pricing", views[0].Query)
	assert.Equal(t, "market access", views[1].Query)
}

func TestGetUnknownRun(t *testing.T) {
	a := New(sequencer.New())

	_, err := a.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = a.Cancel("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCancelRun(t *testing.T) {
	a := New(slowSequencer(), WithPolicy(config.PolicyReject))

	resp, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "drug pricing"})
	require.NoError(t, err)

	run, err := a.Cancel(resp.Run.ID)
	require.NoError(t, err)
	waitDone(t, run)
	assert.Equal(t, sequencer.StateCancelled, run.State())

	// a cancelled run no longer blocks admission
	resp, err = a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "market access"})
	require.NoError(t, err)
	cancelAll(t, a)

	// cancelling again is a no-op
	again, err := a.Cancel(run.ID)
	require.NoError(t, err)
	assert.Equal(t, sequencer.StateCancelled, again.State())
	assert.NotEmpty(t, resp.Run.ID)
}

func TestFinishedRunsExpire(t *testing.T) {
	fc := clockwork.NewFakeClock()
	a := New(sequencer.New(sequencer.WithDelays(0, 0)), WithTTL(time.Minute, fc))

	resp, err := a.Analyze(context.Background(), apimodels.AnalysisRequest{Query: "biosimilar pricing"})
	require.NoError(t, err)
	run, err := a.Get(resp.Run.ID)
	require.NoError(t, err)
	waitDone(t, run)

	// the first lookup after finishing starts the ttl
	require.Len(t, a.List(), 1)

	fc.Advance(59 * time.Second)
	_, err = a.Get(run.ID)
	require.NoError(t, err)

	fc.Advance(time.Second)
	_, err = a.Get(run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Empty(t, a.List())
}

func TestClassify(t *testing.T) {
	a := New(sequencer.New())

	resp := a.Classify("Oncology drug market")
	assert.True(t, resp.Valid)
	assert.Equal(t, []string{"drug", "market"}, resp.MatchedKeywords)

	resp = a.Classify("football scores")
	assert.False(t, resp.Valid)
	assert.Empty(t, resp.MatchedKeywords)
}

package sequencer

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sozercan/agenicai/internal/agents"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

func (s State) Finished() bool {
	return s == StateCompleted || s == StateCancelled
}

// Snapshot is an immutable copy of a run's status map at emission time.
type Snapshot struct {
	Seq      int              `json:"seq"`
	At       time.Time        `json:"at"`
	Statuses agents.StatusMap `json:"statuses"`
}

// Run is one execution of a plan. It owns its status map; readers observe
// it through View, Snapshots or Subscribe.
type Run struct {
	ID     string
	Query  string
	Agents []string

	plan Plan

	mu         sync.RWMutex
	state      State
	statuses   agents.StatusMap
	snapshots  []Snapshot
	results    map[string]agents.Result
	failures   map[string]string
	summary    []string
	startedAt  time.Time
	finishedAt time.Time
	subs       map[int]chan Snapshot
	nextSub    int
	cancel     context.CancelFunc
	done       chan struct{}
}

func newRun(id, query string, workAgents []string, plan Plan) *Run {
	return &Run{
		ID:       id,
		Query:    query,
		Agents:   slices.Clone(workAgents),
		plan:     plan,
		state:    StatePending,
		statuses: agents.NewStatusMap(),
		results:  make(map[string]agents.Result),
		failures: make(map[string]string),
		subs:     make(map[int]chan Snapshot),
		done:     make(chan struct{}),
	}
}

// Done is closed once the run has completed or been cancelled and every
// observer has been told.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Cancel stops the run before its next transition. It is a no-op for runs
// that have not started or have already finished.
func (r *Run) Cancel() {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Run) Statuses() agents.StatusMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statuses.Clone()
}

// Snapshots returns every snapshot emitted so far.
func (r *Run) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.snapshots)
}

// Results returns the agent results in agent order.
func (r *Run) Results() []agents.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resultsLocked()
}

func (r *Run) resultsLocked() []agents.Result {
	out := make([]agents.Result, 0, len(r.results))
	for _, name := range r.Agents {
		if res, ok := r.results[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Subscribe returns a channel that replays the snapshots emitted so far and
// then receives new ones. The channel is closed when the run finishes or
// the returned stop function is called.
func (r *Run) Subscribe() (<-chan Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Snapshot, r.plan.Snapshots())
	for _, s := range r.snapshots {
		ch <- s
	}
	if r.state.Finished() {
		close(ch)
		return ch, func() {}
	}

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
	return ch, stop
}

func (r *Run) setCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
}

func (r *Run) begin(at time.Time) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateRunning
	r.startedAt = at
	r.statuses = r.plan.Initial.Clone()
	return r.emitLocked(at)
}

// apply moves agent to status and emits a snapshot. Nothing is applied once
// ctx is done, and transitions that would move a status backwards are
// ignored.
func (r *Run) apply(ctx context.Context, agent string, status agents.Status, at time.Time) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return Snapshot{}, false
	}
	if !r.statuses[agent].CanAdvance(status) {
		slog.Warn("ignoring backward status transition", "run_id", r.ID, "agent", agent, "from", r.statuses[agent], "to", status)
		return Snapshot{}, false
	}
	r.statuses[agent] = status
	return r.emitLocked(at), true
}

func (r *Run) record(res agents.Result) {
	r.mu.Lock()
	r.results[res.Agent] = res
	r.mu.Unlock()
}

func (r *Run) recordFailure(agent string, err error) {
	r.mu.Lock()
	r.failures[agent] = err.Error()
	r.mu.Unlock()
}

func (r *Run) emitLocked(at time.Time) Snapshot {
	snap := Snapshot{
		Seq:      len(r.snapshots),
		At:       at,
		Statuses: r.statuses.Clone(),
	}
	r.snapshots = append(r.snapshots, snap)
	for id, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			slog.Warn("dropping snapshot for slow subscriber", "run_id", r.ID, "subscriber", id, "seq", snap.Seq)
		}
	}
	return snap
}

// finish moves the run to its terminal state exactly once.
func (r *Run) finish(state State, at time.Time, summary []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Finished() {
		return false
	}
	r.state = state
	r.finishedAt = at
	if state == StateCompleted {
		r.summary = slices.Clone(summary)
	}
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	if r.cancel != nil {
		r.cancel()
	}
	return true
}

func (r *Run) markDone() {
	close(r.done)
}

// View is a point-in-time, JSON friendly copy of a run.
type View struct {
	ID         string            `json:"id"`
	Query      string            `json:"query"`
	State      State             `json:"state"`
	Agents     []string          `json:"agents"`
	Statuses   agents.StatusMap  `json:"statuses"`
	Snapshots  int               `json:"snapshots"`
	Results    []agents.Result   `json:"results,omitempty"`
	Failures   map[string]string `json:"failures,omitempty"`
	Partial    bool              `json:"partial"`
	Summary    []string          `json:"summary,omitempty"`
	StartedAt  *time.Time        `json:"startedAt,omitempty"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
}

func (r *Run) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v := View{
		ID:        r.ID,
		Query:     r.Query,
		State:     r.state,
		Agents:    slices.Clone(r.Agents),
		Statuses:  r.statuses.Clone(),
		Snapshots: len(r.snapshots),
		Results:   r.resultsLocked(),
		Partial:   len(r.failures) > 0,
		Summary:   slices.Clone(r.summary),
	}
	if len(r.failures) > 0 {
		v.Failures = make(map[string]string, len(r.failures))
		for k, e := range r.failures {
			v.Failures[k] = e
		}
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		v.StartedAt = &t
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		v.FinishedAt = &t
	}
	return v
}

// Duration is the elapsed time between start and finish, or zero while the
// run is still active.
func (r *Run) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.startedAt.IsZero() || r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// Package notify delivers run completion events to configured sinks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/sequencer"
)

// RunEvent is published once per finished run.
type RunEvent struct {
	RunID      string          `json:"run_id"`
	Query      string          `json:"query"`
	State      sequencer.State `json:"state"`
	Partial    bool            `json:"partial"`
	Summary    []string        `json:"summary,omitempty"`
	FinishedAt time.Time       `json:"finished_at"`
}

func EventFromRun(run *sequencer.Run) *RunEvent {
	v := run.View()
	ev := &RunEvent{
		RunID:   v.ID,
		Query:   v.Query,
		State:   v.State,
		Partial: v.Partial,
		Summary: v.Summary,
	}
	if v.FinishedAt != nil {
		ev.FinishedAt = *v.FinishedAt
	}
	return ev
}

// Sink consumes run events (log, NATS, etc.).
type Sink interface {
	Name() string
	Deliver(context.Context, *RunEvent) error
	Close(context.Context) error
}

// Notifier fans run events out to sinks from a background worker. It
// implements sequencer.Observer so it can be attached directly to a
// sequencer without blocking the run.
type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	queue   chan *RunEvent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

const queueSize = 256

func New(timeout time.Duration, sinks ...Sink) *Notifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	n := &Notifier{
		sinks:   sinks,
		timeout: timeout,
		queue:   make(chan *RunEvent, queueSize),
	}
	n.wg.Add(1)
	go n.worker()
	return n
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for ev := range n.queue {
		n.Publish(context.Background(), ev)
	}
}

// Emit enqueues ev without blocking. Events are dropped once the notifier
// is closed or its queue is full.
func (n *Notifier) Emit(ev *RunEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		slog.Warn("Dropping run event after close", "run_id", ev.RunID)
		return
	}
	select {
	case n.queue <- ev:
	default:
		slog.Warn("Dropping run event, queue full", "run_id", ev.RunID)
	}
}

// Publish delivers ev to every sink. Failures are logged and do not stop
// delivery to the remaining sinks.
func (n *Notifier) Publish(ctx context.Context, ev *RunEvent) {
	for _, s := range n.sinks {
		dctx, cancel := context.WithTimeout(ctx, n.timeout)
		err := s.Deliver(dctx, ev)
		cancel()
		if err != nil {
			slog.Error("run event delivery failed", "sink", s.Name(), "run_id", ev.RunID, "error", err)
		}
	}
}

// Close stops accepting events, waits for queued ones to be delivered until
// ctx is done, then closes every sink.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Run event queue not drained before close", "error", ctx.Err())
	}

	var firstErr error
	for _, s := range n.sinks {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", s.Name(), err)
		}
	}
	return firstErr
}

func (n *Notifier) RunStarted(*sequencer.Run) {}

func (n *Notifier) StepApplied(*sequencer.Run, string, agents.Status) {}

func (n *Notifier) RunFinished(run *sequencer.Run) {
	n.Emit(EventFromRun(run))
}

// LogSink writes events to the structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, ev *RunEvent) error {
	s.logger.InfoContext(ctx, "run finished",
		"run_id", ev.RunID,
		"state", ev.State,
		"partial", ev.Partial,
		"highlights", len(ev.Summary),
	)
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events as JSON on a NATS subject.
type NATSSink struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
}

// DialNATS connects to url and returns a sink publishing on subject.
func DialNATS(url, subject string) (*NATSSink, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is empty")
	}
	nc, err := nats.Connect(url,
		nats.Name("agenicai"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSSink{pub: nc, conn: nc, subject: subject}, nil
}

// NewNATSSink wraps an existing publisher.
func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

func (s *NATSSink) Name() string { return "nats:" + s.subject }

func (s *NATSSink) Deliver(ctx context.Context, ev *RunEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.pub.Publish(s.subject, data)
}

func (s *NATSSink) Close(context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

package sequencer

import (
	"time"

	"github.com/sozercan/agenicai/internal/agents"
)

const (
	DefaultStepDelay   = 1200 * time.Millisecond
	DefaultReportDelay = 800 * time.Millisecond
)

// Transition moves one agent to a new status once Delay has elapsed after
// the previous transition. Invoke marks steps that call the agent runner.
type Transition struct {
	Delay  time.Duration
	Agent  string
	To     agents.Status
	Invoke bool
}

// Plan is the full state machine of a run: the initial status map emitted
// at start followed by the transitions applied strictly in order.
type Plan struct {
	Initial     agents.StatusMap
	Transitions []Transition
}

// NewPlan builds the staged plan for the given work agents: every work agent
// starts running and completes in order, then the report generator completes.
func NewPlan(workAgents []string, stepDelay, reportDelay time.Duration) Plan {
	initial := agents.NewStatusMap()
	for _, name := range workAgents {
		initial[name] = agents.StatusRunning
	}
	initial[agents.ReportGenerator] = agents.StatusIdle

	transitions := make([]Transition, 0, len(workAgents)+1)
	for _, name := range workAgents {
		transitions = append(transitions, Transition{
			Delay:  stepDelay,
			Agent:  name,
			To:     agents.StatusCompleted,
			Invoke: true,
		})
	}
	transitions = append(transitions, Transition{
		Delay: reportDelay,
		Agent: agents.ReportGenerator,
		To:    agents.StatusCompleted,
	})

	return Plan{Initial: initial, Transitions: transitions}
}

// Snapshots is the number of snapshots a run of this plan emits when it is
// not cancelled.
func (p Plan) Snapshots() int {
	return len(p.Transitions) + 1
}

// Duration is the total delay of the plan.
func (p Plan) Duration() time.Duration {
	var d time.Duration
	for _, t := range p.Transitions {
		d += t.Delay
	}
	return d
}

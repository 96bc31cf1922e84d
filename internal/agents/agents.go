// Package agents defines the fixed agent roster, agent status values and the
// Runner capability that produces an agent's findings for a query.
package agents

import (
	"context"
	"maps"
)

const (
	IQVIAInsights     = "IQVIA Insights"
	EXIMTrends        = "EXIM Trends"
	PatentLandscape   = "Patent Landscape"
	ClinicalTrials    = "Clinical Trials"
	InternalKnowledge = "Internal Knowledge"
	WebIntelligence   = "Web Intelligence"
	ReportGenerator   = "Report Generator"
)

type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Roster is the complete set of agents in display order. The report
// generator is always last.
var Roster = []Agent{
	{ID: "iqvia", Name: IQVIAInsights, Description: "Market analysis"},
	{ID: "exim", Name: EXIMTrends, Description: "Import/export data"},
	{ID: "patent", Name: PatentLandscape, Description: "Patent search"},
	{ID: "trials", Name: ClinicalTrials, Description: "Clinical data"},
	{ID: "internal", Name: InternalKnowledge, Description: "Internal research"},
	{ID: "web", Name: WebIntelligence, Description: "Web scraping"},
	{ID: "report", Name: ReportGenerator, Description: "Report generation"},
}

// WorkAgents returns the names of every agent except the report generator,
// in roster order. A fresh slice is returned on each call.
func WorkAgents() []string {
	names := make([]string, 0, len(Roster)-1)
	for _, a := range Roster {
		if a.Name == ReportGenerator {
			continue
		}
		names = append(names, a.Name)
	}
	return names
}

func Lookup(idOrName string) (Agent, bool) {
	for _, a := range Roster {
		if a.ID == idOrName || a.Name == idOrName {
			return a, true
		}
	}
	return Agent{}, false
}

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusIdle:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether moving from s to next keeps the status moving
// forward. Terminal statuses never change.
func (s Status) CanAdvance(next Status) bool {
	if s.Terminal() || next.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

// StatusMap maps an agent name to its status.
type StatusMap map[string]Status

// NewStatusMap returns a map keyed by the full roster with every agent idle.
func NewStatusMap() StatusMap {
	m := make(StatusMap, len(Roster))
	for _, a := range Roster {
		m[a.Name] = StatusIdle
	}
	return m
}

func (m StatusMap) Clone() StatusMap {
	return maps.Clone(m)
}

func (m StatusMap) Count(s Status) int {
	n := 0
	for _, v := range m {
		if v == s {
			n++
		}
	}
	return n
}

// Result is what a runner produced for one agent.
type Result struct {
	Agent    string   `json:"agent"`
	Source   string   `json:"source"`
	Findings []string `json:"findings"`
}

// Runner executes a single agent for a query.
type Runner interface {
	RunAgent(ctx context.Context, agent, query string) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, agent, query string) (Result, error)

func (f RunnerFunc) RunAgent(ctx context.Context, agent, query string) (Result, error) {
	return f(ctx, agent, query)
}

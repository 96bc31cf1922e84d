package report

import (
	"time"

	"github.com/sozercan/agenicai/internal/agents"
)

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Note  string `json:"note"`
}

type Candidate struct {
	Rank       string `json:"rank"`
	Name       string `json:"name"`
	Indication string `json:"indication"`
	Market     string `json:"market"`
}

// Analysis is the content rendered into export artifacts.
type Analysis struct {
	Title      string          `json:"title"`
	Subtitle   string          `json:"subtitle"`
	Summary    []string        `json:"summary"`
	Metrics    []Metric        `json:"metrics"`
	Candidates []Candidate     `json:"candidates"`
	NextSteps  []string        `json:"nextSteps"`
	Findings   []agents.Result `json:"findings,omitempty"`
	Date       time.Time       `json:"date"`
}

// Highlights are shown when a run completes.
var Highlights = []string{
	"3 respiratory molecules identified",
	"Market opportunity: $2.3B",
	"Regulatory pathway cleared",
	"Clinical trial feasibility: High",
}

// Default returns the fixed analysis results dated at now.
func Default(now time.Time) Analysis {
	return Analysis{
		Title:    "AgenicAI Pharmaceutical Analysis",
		Subtitle: "Master-Worker Agent Orchestration Report",
		Summary: []string{
			"3 respiratory molecules identified with high repurposing potential",
			"Patient burden > 50M in India market, low current competition",
			"Average clinical trial timeline: 3.2 years, estimated cost: ₹1,640 Cr",
			"Market opportunity: ₹18,900 Cr by 2028",
		},
		Metrics: []Metric{
			{Label: "Market Size", Value: "₹18,900 Cr", Note: "Projected 2028 value"},
			{Label: "Success Rate", Value: "68%", Note: "Phase 2+ approval odds"},
			{Label: "Candidates", Value: "3", Note: "Molecules identified"},
			{Label: "Timeline", Value: "3.2 years", Note: "Average trial duration"},
		},
		Candidates: []Candidate{
			{Rank: "1st", Name: "Molecule A-147", Indication: "Idiopathic Pulmonary Fibrosis", Market: "₹7,297 Cr"},
			{Rank: "2nd", Name: "Compound B-233", Indication: "COPD Exacerbation", Market: "₹5,907 Cr"},
			{Rank: "3rd", Name: "Entity C-501", Indication: "Asthma Management", Market: "₹5,658 Cr"},
		},
		NextSteps: []string{
			"Conduct detailed competitive analysis",
			"Initiate Phase 1 safety studies",
			"Engage regulatory consultation",
			"Plan market entry strategy",
		},
		Date: now,
	}
}

// WithFindings returns a copy of a that also carries per-agent findings.
func (a Analysis) WithFindings(results []agents.Result) Analysis {
	a.Findings = append([]agents.Result(nil), results...)
	return a
}

// FormatDate renders t the way the reports print dates, e.g. "18 October 2026".
func FormatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

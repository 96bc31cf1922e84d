package apimodels

import (
	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/report"
	"github.com/sozercan/agenicai/internal/scope"
	"github.com/sozercan/agenicai/internal/sequencer"
)

type ClassifyResponse struct {
	scope.Verdict

	// Keywords that put the query in scope
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
}

type AnalysisResponse struct {
	// Scope decision for the query
	Verdict scope.Verdict `json:"verdict"`

	// The started run; absent when the query is out of scope
	Run *sequencer.View `json:"run,omitempty"`

	// Metadata about the analysis
	Metadata *AnalysisMetadata `json:"metadata,omitempty"`
}

type AnalysisMetadata struct {
	// Runner producing agent findings
	Runner string `json:"runner"`

	// Number of status snapshots the run will emit
	Steps int `json:"steps"`

	// Sum of all step delays
	EstimatedDuration string `json:"estimatedDuration"`
}

type RunList struct {
	Runs []sequencer.View `json:"runs"`
}

type AgentList struct {
	Agents []agents.Agent `json:"agents"`
}

type SampleList struct {
	Queries []string `json:"queries"`
}

type FormatList struct {
	Formats []report.FormatInfo `json:"formats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

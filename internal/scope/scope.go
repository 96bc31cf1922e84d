// Package scope decides whether a free-text query falls inside the
// pharmaceutical research domain the agents cover.
//
// Matching is a case-insensitive substring test against a fixed keyword
// list. Words are not tokenised, so "cancerous" matches "cancer" and "prevent"
// matches "event".
package scope

import (
	"strings"

	"github.com/sozercan/agenicai/internal/agents"
)

type Scope string

const (
	Pharma     Scope = "pharma"
	OutOfScope Scope = "out-of-scope"
)

const (
	ValidMessage      = "Query is valid for analysis"
	OutOfScopeMessage = "This query is out of scope. I'm specialized in pharmaceutical research, drug development, market analysis, patents, and clinical trials. Please ask questions related to the pharma industry."
)

// Keywords is the allow-list checked by Classify, in match order.
var Keywords = []string{
	"drug",
	"molecule",
	"compound",
	"clinical",
	"trial",
	"patent",
	"market",
	"analysis",
	"pharmaceutical",
	"biotech",
	"disease",
	"therapy",
	"treatment",
	"research",
	"development",
	"fda",
	"approval",
	"indication",
	"efficacy",
	"safety",
	"formulation",
	"manufacturing",
	"supply",
	"competitor",
	"investment",
	"pricing",
	"regulatory",
	"compliance",
	"phase",
	"adverse",
	"event",
	"data",
	"diabetes",
	"cancer",
	"cardiovascular",
	"neurology",
	"immunology",
	"orphan",
	"rare",
}

// SampleQueries are example prompts that all classify as in scope.
var SampleQueries = []string{
	"Find respiratory molecules with low competition but high patient burden in India.",
	"Identify antiviral compounds suitable for immunocompromised patients.",
	"Search for cardiovascular repurposing opportunities in Asian markets.",
	"Analyze pricing potential for rare disease treatments.",
	"Find oncology candidates with Phase 2 data available.",
}

type Verdict struct {
	Valid   bool     `json:"isValid"`
	Scope   Scope    `json:"scope"`
	Message string   `json:"message"`
	Agents  []string `json:"agents,omitempty"`
}

// Classify never fails; an out-of-scope query is reported in the verdict.
func Classify(query string) Verdict {
	if !containsKeyword(strings.ToLower(query)) {
		return Verdict{
			Valid:   false,
			Scope:   OutOfScope,
			Message: OutOfScopeMessage,
		}
	}

	return Verdict{
		Valid:   true,
		Scope:   Pharma,
		Message: ValidMessage,
		Agents:  agents.WorkAgents(),
	}
}

// MatchedKeywords returns every keyword found in query, in Keywords order.
func MatchedKeywords(query string) []string {
	lower := strings.ToLower(query)
	var matched []string
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func containsKeyword(lower string) bool {
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

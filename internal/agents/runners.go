package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sozercan/agenicai/internal/knowledge"
	"github.com/sozercan/agenicai/internal/llm"
)

const (
	SourceCanned    = "canned"
	SourceLLM       = "llm"
	SourceKnowledge = "knowledge"
)

var cannedFindings = map[string][]string{
	IQVIAInsights: {
		"Respiratory segment projected at ₹18,900 Cr by 2028",
		"Patient burden > 50M in India market",
	},
	EXIMTrends: {
		"API imports for respiratory generics rising year over year",
		"Low current competition in target segments",
	},
	PatentLandscape: {
		"Molecule A-147 composition patent expires within the planning window",
		"No blocking formulation patents found for Compound B-233",
	},
	ClinicalTrials: {
		"Average clinical trial timeline: 3.2 years",
		"68% Phase 2+ approval odds across comparable programs",
	},
	InternalKnowledge: {
		"3 respiratory molecules identified with high repurposing potential",
		"Prior internal safety data available for Entity C-501",
	},
	WebIntelligence: {
		"Estimated clinical program cost: ₹1,640 Cr",
		"Regulatory guidance favours repurposed respiratory therapies",
	},
}

// CannedRunner returns fixed findings for every agent and never fails.
type CannedRunner struct{}

func (CannedRunner) RunAgent(ctx context.Context, agent, query string) (Result, error) {
	findings, ok := cannedFindings[agent]
	if !ok {
		findings = []string{agent + " completed"}
	}
	return Result{
		Agent:    agent,
		Source:   SourceCanned,
		Findings: append([]string(nil), findings...),
	}, nil
}

// LLMRunner asks a language model for a short finding in the agent's role.
type LLMRunner struct {
	provider llm.Provider
	opts     []llm.Option
}

func NewLLMRunner(provider llm.Provider, opts ...llm.Option) *LLMRunner {
	return &LLMRunner{provider: provider, opts: opts}
}

func (r *LLMRunner) RunAgent(ctx context.Context, agent, query string) (Result, error) {
	desc := agent
	if a, ok := Lookup(agent); ok {
		desc = fmt.Sprintf("%s (%s)", a.Name, strings.ToLower(a.Description))
	}
	system := fmt.Sprintf(`You are the %s agent of a pharmaceutical research assistant.
Answer only from the perspective of your specialty.
Reply with at most three findings, one per line, without numbering.`, desc)

	resp, err := r.provider.Analyze(ctx, []string{system}, []string{query}, r.opts...)
	if err != nil {
		return Result{}, fmt.Errorf("%s: LLM analysis failed: %w", agent, err)
	}

	return Result{
		Agent:    agent,
		Source:   SourceLLM,
		Findings: splitLines(resp.Content),
	}, nil
}

// KnowledgeRunner searches the internal knowledge graph.
type KnowledgeRunner struct {
	client *knowledge.Client
}

func NewKnowledgeRunner(client *knowledge.Client) *KnowledgeRunner {
	return &KnowledgeRunner{client: client}
}

func (r *KnowledgeRunner) RunAgent(ctx context.Context, agent, query string) (Result, error) {
	found, err := r.client.Search(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("%s: knowledge search failed: %w", agent, err)
	}

	findings := make([]string, 0, len(found))
	for _, f := range found {
		text := f.Title
		if f.Summary != "" {
			text += ": " + f.Summary
		}
		findings = append(findings, splitLines(text)...)
	}
	return Result{Agent: agent, Source: SourceKnowledge, Findings: findings}, nil
}

// Router dispatches each agent to a dedicated runner, falling back to a
// default for agents without one.
type Router struct {
	fallback Runner
	routes   map[string]Runner
}

func NewRouter(fallback Runner) *Router {
	return &Router{fallback: fallback, routes: make(map[string]Runner)}
}

func (r *Router) Route(agent string, runner Runner) *Router {
	r.routes[agent] = runner
	return r
}

func (r *Router) RunAgent(ctx context.Context, agent, query string) (Result, error) {
	runner, ok := r.routes[agent]
	if !ok {
		runner = r.fallback
	}
	slog.Debug("dispatching agent", "agent", agent, "routed", ok)
	return runner.RunAgent(ctx, agent, query)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

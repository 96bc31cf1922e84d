// Package knowledge queries the internal research knowledge base over GraphQL.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Khan/genqlient/graphql"
)

const findingsQuery = `query Findings($query: String!) {
  findings(query: $query) {
    title
    summary
  }
}`

type Finding struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type findingsResponse struct {
	Findings []Finding `json:"findings"`
}

type Client struct {
	client graphql.Client
}

func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	slog.Info("Creating knowledge client", "endpoint", endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("knowledge endpoint cannot be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	return &Client{
		client: graphql.NewClient(endpoint, httpClient),
	}, nil
}

// Search returns the knowledge base findings matching query.
func (c *Client) Search(ctx context.Context, query string) ([]Finding, error) {
	slog.Debug("Executing GraphQL query", "operation", "Findings", "query", query)
	req := &graphql.Request{
		OpName: "Findings",
		Query:  findingsQuery,
		Variables: map[string]interface{}{
			"query": query,
		},
	}

	var data findingsResponse
	resp := &graphql.Response{Data: &data}
	if err := c.client.MakeRequest(ctx, req, resp); err != nil {
		slog.Error("GraphQL query execution failed", "error", err)
		return nil, err
	}

	slog.Debug("GraphQL query executed successfully", "findings", len(data.Findings))
	return data.Findings, nil
}

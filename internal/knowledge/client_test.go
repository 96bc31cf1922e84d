package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	mockResponse := `
{
  "data": {
    "findings": [
      {"title": "Entity C-501", "summary": "Prior safety data in asthma cohorts"},
      {"title": "Molecule A-147", "summary": ""}
    ]
  }
}`

	var body map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mockResponse))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, time.Second)
	require.NoError(t, err)

	findings, err := client.Search(context.Background(), "respiratory repurposing")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "Entity C-501", findings[0].Title)
	assert.Equal(t, "Prior safety data in asthma cohorts", findings[0].Summary)

	require.NotNil(t, body)
	assert.Equal(t, "Findings", body["operationName"])
	vars, ok := body["variables"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "respiratory repurposing", vars["query"])
}

func TestSearchGraphQLErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": null, "errors": [{"message": "index offline"}]}`))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL, time.Second)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "drug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index offline")
}

func TestNewClientEmptyEndpoint(t *testing.T) {
	_, err := NewClient("", time.Second)
	assert.Error(t, err)
}

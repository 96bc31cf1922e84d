package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/sequencer"
)

func TestObserverCounts(t *testing.T) {
	m := New()
	seq := sequencer.New(sequencer.WithDelays(0, 0), sequencer.WithObserver(m))

	run := seq.NewRun("drug", agents.WorkAgents())
	require.NoError(t, seq.Execute(context.Background(), run))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AgentSteps.WithLabelValues(agents.ReportGenerator, "completed")))
	assert.Equal(t, 7, testutil.CollectAndCount(m.AgentSteps))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Classifications.WithLabelValues("pharma").Inc()
	m.Exports.WithLabelValues("pdf").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `agenicai_classifications_total{scope="pharma"} 1`)
	assert.Contains(t, string(body), `agenicai_exports_total{format="pdf"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewUsesIsolatedRegistry(t *testing.T) {
	// registering twice would panic on a shared registry
	a, b := New(), New()
	assert.NotSame(t, a.Registry(), b.Registry())
}

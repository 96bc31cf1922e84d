package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sozercan/agenicai/apimodels"
	"github.com/sozercan/agenicai/internal/agents"
	"github.com/sozercan/agenicai/internal/analyzer"
	"github.com/sozercan/agenicai/internal/report"
	"github.com/sozercan/agenicai/internal/scope"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apimodels.AgentList{Agents: agents.Roster})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apimodels.SampleList{Queries: scope.SampleQueries})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apimodels.FormatList{Formats: report.Formats()})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req apimodels.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	resp := s.analyzer.Classify(req.Query)
	s.metrics.Classifications.WithLabelValues(string(resp.Scope)).Inc()
	slog.Debug("Classified query", "query", req.Query, "scope", resp.Scope)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req apimodels.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	slog.Debug("Received analysis request", "request", req)

	result, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		slog.Warn("Analysis request refused", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	s.metrics.Classifications.WithLabelValues(string(result.Verdict.Scope)).Inc()
	if !result.Verdict.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apimodels.RunList{Runs: s.analyzer.List()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.analyzer.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run.View())
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.analyzer.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	select {
	case <-run.Done():
	case <-r.Context().Done():
	}
	writeJSON(w, http.StatusOK, run.View())
}

// handleRunEvents streams every snapshot of a run as an SSE "data" frame and
// finishes with a "complete" event carrying the final view.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	run, err := s.analyzer.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("Failed to clear write deadline", "run_id", run.ID, "error", err)
	}

	setSSEHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	snapshots, stop := run.Subscribe()
	defer stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("Event stream closed by client", "run_id", run.ID)
			return
		case snap, ok := <-snapshots:
			if !ok {
				writeEvent(w, rc, "complete", fmt.Sprint(len(run.Snapshots())), run.View())
				return
			}
			writeEvent(w, rc, "", fmt.Sprint(snap.Seq), snap)
		}
	}
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	run, err := s.analyzer.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	now := s.clock.Now()
	s.writeArtifact(w, chi.URLParam(r, "format"), report.Default(now).WithFindings(run.Results()), now)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	s.writeArtifact(w, chi.URLParam(r, "format"), report.Default(now), now)
}

func (s *Server) writeArtifact(w http.ResponseWriter, format string, a report.Analysis, now time.Time) {
	art, err := report.Render(report.Format(format), a, now)
	if err != nil {
		slog.Warn("Export failed", "format", format, "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	s.metrics.Exports.WithLabelValues(format).Inc()

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Body); err != nil {
		slog.Error("Failed to write artifact", "filename", art.Filename, "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analyzer.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, analyzer.ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, analyzer.ErrRunNotFound), errors.Is(err, report.ErrUnknownFormat):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apimodels.ErrorResponse{Error: err.Error()})
}

func setSSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Del("Content-Length")
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event, id string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode event", "event", event, "error", err)
		return
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "id: %s\ndata: %s\n\n", id, data)
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Debug("Failed to flush event", "error", err)
	}
}

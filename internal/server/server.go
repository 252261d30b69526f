package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
	"github.com/anatolykoptev/go_scanner/internal/qualify/sources"
)

// Runner is the single pipeline entry point the server needs.
type Runner interface {
	Qualify(ctx context.Context, scannerID int64) (*qualify.Result, error)
}

// Server exposes the qualification pipeline over HTTP.
type Server struct {
	runner  Runner
	history *sources.RunHistory
	version string
}

func New(runner Runner, history *sources.RunHistory, version string) *Server {
	return &Server{runner: runner, history: history, version: version}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /qualify-videos", s.handleQualify)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /runs", s.handleRuns)
	return mux
}

type qualifyRequest struct {
	ScannerID int64 `json:"scanner_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleQualify(w http.ResponseWriter, r *http.Request) {
	var req qualifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	res, err := s.runner.Qualify(r.Context(), req.ScannerID)
	if err != nil {
		// Only input validation surfaces as an error; everything else
		// is inside the result.
		status := http.StatusInternalServerError
		if errors.Is(err, qualify.ErrInvalidScannerID) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Detail: err.Error()})
		return
	}

	if err := s.history.Record(r.Context(), res); err != nil {
		slog.Warn("failed to record run history", slog.Any("error", err))
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "go_scanner",
		"version": s.version,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(qualify.FormatMetrics()))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.history.Recent(r.Context(), 20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	if runs == nil {
		runs = []sources.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": len(runs)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", slog.Any("error", err))
	}
}

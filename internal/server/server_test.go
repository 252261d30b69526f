package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_scanner/internal/qualify"
)

type fakeRunner struct {
	result *qualify.Result
	err    error
	lastID int64
}

func (f *fakeRunner) Qualify(_ context.Context, scannerID int64) (*qualify.Result, error) {
	f.lastID = scannerID
	return f.result, f.err
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQualifyEndpoint(t *testing.T) {
	runner := &fakeRunner{result: &qualify.Result{
		ScannerID:    7,
		Success:      true,
		QualifiedIDs: []string{"aaaaaaaaaaa"},
		Warnings:     []string{},
	}}
	s := New(runner, nil, "test")

	rec := doRequest(t, s, "POST", "/qualify-videos", `{"scanner_id": 7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if runner.lastID != 7 {
		t.Errorf("scanner id not forwarded: %d", runner.lastID)
	}
	var res qualify.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ScannerID != 7 || len(res.QualifiedIDs) != 1 {
		t.Errorf("result mangled: %+v", res)
	}
}

func TestQualifyEndpointFailedRun(t *testing.T) {
	runner := &fakeRunner{result: &qualify.Result{
		ScannerID: 7,
		Success:   false,
		Error:     "fetch scanner state: connection refused",
		Warnings:  []string{},
	}}
	s := New(runner, nil, "test")

	rec := doRequest(t, s, "POST", "/qualify-videos", `{"scanner_id": 7}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failed run should return 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("result body missing error: %s", rec.Body.String())
	}
}

func TestQualifyEndpointValidation(t *testing.T) {
	runner := &fakeRunner{err: qualify.ErrInvalidScannerID}
	s := New(runner, nil, "test")

	rec := doRequest(t, s, "POST", "/qualify-videos", `{"scanner_id": -1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid scanner id should return 400, got %d", rec.Code)
	}

	rec = doRequest(t, s, "POST", "/qualify-videos", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body should return 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := New(&fakeRunner{}, nil, "1.2.3")
	rec := doRequest(t, s, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "1.2.3" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(&fakeRunner{}, nil, "test")
	rec := doRequest(t, s, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "runs_started") {
		t.Errorf("metrics text missing counters: %s", rec.Body.String())
	}
}

func TestRunsEndpointWithoutHistory(t *testing.T) {
	s := New(&fakeRunner{}, nil, "test")
	rec := doRequest(t, s, "GET", "/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"runs":[]`) {
		t.Errorf("expected empty runs list: %s", rec.Body.String())
	}
}

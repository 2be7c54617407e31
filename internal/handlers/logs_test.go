package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.Event{
		{EventID: "e1", OccurredAt: now, Type: "START", Description: "start"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: "LEVEL_CHANGE", Description: "level 2"},
	}
	logs := &mockEventLog{resp: events}
	s := &service.Service{
		Authorization: auth,
		EventLog:      logs,
	}
	r := newTestRouter(s)

	// invalid 'from' → 400
	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=notatime", nil)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// inverted range → 400
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2026-03-02&to=2026-03-01T00:00:00Z", nil)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 inverted range, got %d", w.Code)
	}

	// Valid range and type (lowercase type should be normalized to upper in service call)
	w = httptest.NewRecorder()
	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=level_change"
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, q, nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int            `json:"count"`
		Events []models.Event `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.last.Type != "LEVEL_CHANGE" {
		t.Fatalf("expected lastType LEVEL_CHANGE, got %q", logs.last.Type)
	}
}

func TestLogsHandler_DateOnlyToCoversWholeDay(t *testing.T) {
	logs := &mockEventLog{}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?to=2026-03-01", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	want := time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC)
	if !logs.last.To.Equal(want) {
		t.Fatalf("lastTo = %v, want %v", logs.last.To, want)
	}
}

func TestLogsHandler_RunAndLimit(t *testing.T) {
	logs := &mockEventLog{}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?run_id=12&limit=5", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if logs.last.RunID != 12 || logs.last.Limit != 5 {
		t.Fatalf("unexpected filter: %+v", logs.last)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs?run_id=abc", nil)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad run_id, got %d", w.Code)
	}
}

func TestLogsHandler_ServiceError(t *testing.T) {
	logs := &mockEventLog{err: errors.New("db down")}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

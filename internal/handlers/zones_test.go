package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"zonectl/internal/models"
	"zonectl/internal/service"
)

func TestZonesHandler(t *testing.T) {
	zones := &mockZones{zones: []models.ZoneStatus{
		{Zone: 1, LastCommand: "OPEN_VALVE", LastOutcome: "OK"},
		{Zone: 2, LastCommand: "FAN_ON", LastOutcome: "FAILED", ConsecutiveFailures: 3},
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Zones: zones}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count int                 `json:"count"`
		Zones []models.ZoneStatus `json:"zones"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 2 || out.Zones[1].ConsecutiveFailures != 3 {
		t.Fatalf("unexpected response: %+v", out)
	}

	zones.err = errors.New("db down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"zonectl/internal/commands"
	"zonectl/internal/models"
	"zonectl/internal/protocol"
	"zonectl/internal/service"
)

func failedResult() protocol.Result {
	return protocol.Result{
		Command:    "OPEN_VALVE",
		Zone:       1,
		Opcode:     0x10,
		StatusCode: protocol.CodeErrAck,
		Outcome:    protocol.OutcomeFailed,
		Kind:       protocol.KindDeviceError,
		Reason:     protocol.ReasonAckError,
	}
}

func TestCommandHandlers_List(t *testing.T) {
	cat := &mockCatalog{
		defs: []models.CommandDef{{Name: "OPEN_VALVE", Zone: 1, Opcode: 0x10}},
		anomalies: []commands.Anomaly{
			{Line: 4, Raw: "0x10 | BROKEN", Skipped: true, Err: commands.ErrFieldCount},
		},
	}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Catalog: cat}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count     int                 `json:"count"`
		Commands  []models.CommandDef `json:"commands"`
		Anomalies []anomalyView       `json:"anomalies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || out.Commands[0].Name != "OPEN_VALVE" {
		t.Fatalf("unexpected commands: %+v", out)
	}
	if len(out.Anomalies) != 1 || out.Anomalies[0].Line != 4 || !out.Anomalies[0].Skipped || out.Anomalies[0].Error == "" {
		t.Fatalf("unexpected anomalies: %+v", out.Anomalies)
	}
}

func TestCommandHandlers_Execute(t *testing.T) {
	cases := []struct {
		name     string
		result   protocol.Result
		err      error
		query    string
		wantCode int
	}{
		{name: "ok", result: protocol.Result{Command: "OPEN_VALVE", Outcome: protocol.OutcomeOK}, wantCode: http.StatusOK},
		{name: "failed is 200 by default", result: failedResult(), wantCode: http.StatusOK},
		{name: "failed is 502 when strict", result: failedResult(), query: "?strict=true", wantCode: http.StatusBadGateway},
		{name: "ok stays 200 when strict", result: protocol.Result{Outcome: protocol.OutcomeOK}, query: "?strict=1", wantCode: http.StatusOK},
		{name: "dispatch error is 503", err: context.Canceled, wantCode: http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &mockDispatch{result: tc.result, err: tc.err}
			s := &service.Service{Authorization: &mockAuth{parseID: 1}, Dispatch: d}
			r := newTestRouter(s)

			w := httptest.NewRecorder()
			req := withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/commands/OPEN_VALVE/execute"+tc.query, nil))
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if d.lastName != "OPEN_VALVE" || d.lastSource != service.SourceAPI {
				t.Fatalf("dispatch got name=%q source=%q", d.lastName, d.lastSource)
			}
			if tc.err != nil {
				return
			}
			var res protocol.Result
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if res.Outcome != tc.result.Outcome || res.Reason != tc.result.Reason {
				t.Fatalf("unexpected result body: %+v", res)
			}
		})
	}
}

func TestCommandHandlers_Raw(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantCode   int
		wantCalled bool
		wantZone   uint8
		wantOpcode uint8
		wantName   string
	}{
		{name: "valid", body: `{"zone":3,"opcode":16,"name":"MANUAL"}`, wantCode: http.StatusOK, wantCalled: true, wantZone: 3, wantOpcode: 16, wantName: "MANUAL"},
		{name: "zero values are allowed", body: `{"zone":0,"opcode":0}`, wantCode: http.StatusOK, wantCalled: true, wantName: defaultRawName},
		{name: "max byte values", body: `{"zone":255,"opcode":255}`, wantCode: http.StatusOK, wantCalled: true, wantZone: 255, wantOpcode: 255, wantName: defaultRawName},
		{name: "zone too large", body: `{"zone":256,"opcode":1}`, wantCode: http.StatusBadRequest},
		{name: "negative opcode", body: `{"zone":1,"opcode":-1}`, wantCode: http.StatusBadRequest},
		{name: "missing opcode", body: `{"zone":1}`, wantCode: http.StatusBadRequest},
		{name: "not json", body: `zone=1`, wantCode: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &mockDispatch{result: protocol.Result{Outcome: protocol.OutcomeOK}}
			s := &service.Service{Authorization: &mockAuth{parseID: 1}, Dispatch: d}
			r := newTestRouter(s)

			w := httptest.NewRecorder()
			req := withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/raw", bytes.NewBufferString(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if (d.calls == 1) != tc.wantCalled {
				t.Fatalf("dispatch calls: got %d, want called=%v", d.calls, tc.wantCalled)
			}
			if !tc.wantCalled {
				return
			}
			if d.lastZone != tc.wantZone || d.lastOpcode != tc.wantOpcode || d.lastName != tc.wantName {
				t.Fatalf("dispatch got zone=%d opcode=%d name=%q", d.lastZone, d.lastOpcode, d.lastName)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}

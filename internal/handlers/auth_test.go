package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"zonectl/internal/service"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlers_SignUpAndSignIn(t *testing.T) {
	auth := &mockAuth{signUpID: 42, genTokenToken: "tok123", parseID: 1}
	s := &service.Service{Authorization: auth}
	r := newTestRouter(s)

	// sign-up success, username trimmed
	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-up", `{"username":"  shift-a ","password":"p4ssword"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("sign-up status=%d, body=%s", w.Code, w.Body.String())
	}
	var m map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if int(m["id"].(float64)) != 42 {
		t.Fatalf("expected id=42, got %v", m["id"])
	}
	if auth.lastSignUpUsername != "shift-a" {
		t.Fatalf("expected trimmed username, got %q", auth.lastSignUpUsername)
	}

	// sign-in success
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/auth/sign-in", `{"username":"shift-a","password":"p4ssword"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	m = map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["token"] != "tok123" || m["token_type"] != "Bearer" {
		t.Fatalf("unexpected sign-in body: %v", m)
	}
}

func TestAuthHandlers_Errors(t *testing.T) {
	cases := []struct {
		name     string
		auth     *mockAuth
		path     string
		body     string
		wantCode int
	}{
		{name: "sign-in invalid body", auth: &mockAuth{}, path: "/auth/sign-in", body: `{"username":1}`, wantCode: http.StatusBadRequest},
		{name: "sign-up short password", auth: &mockAuth{}, path: "/auth/sign-up", body: `{"username":"bob","password":"short"}`, wantCode: http.StatusBadRequest},
		{name: "sign-up short username", auth: &mockAuth{}, path: "/auth/sign-up", body: `{"username":"b","password":"longenough"}`, wantCode: http.StatusBadRequest},
		{name: "sign-up duplicate", auth: &mockAuth{signUpErr: service.ErrOperatorExists}, path: "/auth/sign-up", body: `{"username":"bob","password":"longenough"}`, wantCode: http.StatusConflict},
		{name: "sign-up storage failure", auth: &mockAuth{signUpErr: errors.New("db down")}, path: "/auth/sign-up", body: `{"username":"bob","password":"longenough"}`, wantCode: http.StatusInternalServerError},
		{name: "sign-in wrong password", auth: &mockAuth{genTokenErr: service.ErrInvalidPassword}, path: "/auth/sign-in", body: `{"username":"bob","password":"longenough"}`, wantCode: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Authorization: tc.auth})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON(tc.path, tc.body))
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
		})
	}
}

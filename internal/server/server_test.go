package server

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"8080":           ":8080",
		":9090":          ":9090",
		"127.0.0.1:8080": "127.0.0.1:8080",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestNew_ConfiguresTimeouts(t *testing.T) {
	s := New("8081", http.NotFoundHandler())
	if s.Addr() != ":8081" {
		t.Fatalf("addr: got %q", s.Addr())
	}
	if s.httpServer.WriteTimeout != writeTimeout || s.httpServer.ReadHeaderTimeout != readHeaderTimeout {
		t.Fatalf("unexpected timeouts: %+v", s.httpServer)
	}
}

func TestRun_ShutdownReturnsNil(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("expected nil after graceful shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Shutdown")
	}
}

func TestShutdown_NilServer(t *testing.T) {
	var s *Server
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

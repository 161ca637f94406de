package handlers

import (
	"context"
	"net/http"
	"sync"

	"zonectl/internal/commands"
	"zonectl/internal/models"
	"zonectl/internal/protocol"
	"zonectl/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockDispatch answers every call with result/err and broadcasts it to subscribers.
type mockDispatch struct {
	mu     sync.Mutex
	result protocol.Result
	err    error

	lastName   string
	lastZone   uint8
	lastOpcode uint8
	lastSource string
	calls      int

	subs []chan protocol.Result
}

func (m *mockDispatch) Execute(ctx context.Context, name string) (protocol.Result, error) {
	m.mu.Lock()
	m.calls++
	m.lastName = name
	m.lastSource = service.SourceFrom(ctx)
	m.mu.Unlock()
	return m.result, m.err
}

func (m *mockDispatch) Send(ctx context.Context, zone, opcode uint8, name string) (protocol.Result, error) {
	m.mu.Lock()
	m.calls++
	m.lastName, m.lastZone, m.lastOpcode = name, zone, opcode
	m.lastSource = service.SourceFrom(ctx)
	m.mu.Unlock()
	return m.result, m.err
}

func (m *mockDispatch) Subscribe(buffer int) (<-chan protocol.Result, func()) {
	ch := make(chan protocol.Result, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *mockDispatch) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *mockDispatch) publish(r protocol.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		ch <- r
	}
}

type mockCatalog struct {
	defs      []models.CommandDef
	anomalies []commands.Anomaly
}

func (m *mockCatalog) Commands() []models.CommandDef  { return m.defs }
func (m *mockCatalog) Anomalies() []commands.Anomaly { return m.anomalies }

type mockZones struct {
	zones []models.ZoneStatus
	err   error
}

func (m *mockZones) List(ctx context.Context) ([]models.ZoneStatus, error) {
	return m.zones, m.err
}

type mockExecutionLog struct {
	resp       []models.Execution
	err        error
	lastFilter service.ExecutionFilter
}

func (m *mockExecutionLog) List(ctx context.Context, f service.ExecutionFilter) ([]models.Execution, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}

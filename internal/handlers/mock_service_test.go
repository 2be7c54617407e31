package handlers

import (
	"context"
	"net/http"

	"controlling_fermenter/internal/models"
	"controlling_fermenter/internal/service"

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

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockController struct {
	startRun models.Run
	startErr error
	stopErr  error
	abortErr error
	status   models.Run

	lastDef     models.RunDefinition
	lastReason  string
	startCalled int
	stopCalled  int
	abortCalled int
}

func (m *mockController) Start(ctx context.Context, def models.RunDefinition) (models.Run, error) {
	m.startCalled++
	m.lastDef = def
	return m.startRun, m.startErr
}
func (m *mockController) Stop(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockController) Abort(ctx context.Context, reason string) error {
	m.abortCalled++
	m.lastReason = reason
	return m.abortErr
}
func (m *mockController) Status(ctx context.Context) (models.Run, error) {
	return m.status, nil
}

type mockMonitoring struct {
	status service.Status
	err    error
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (service.Status, error) {
	return m.status, m.err
}

type mockRuns struct {
	runs        []models.Run
	run         models.Run
	readings    []models.Reading
	err         error
	lastFilter  service.RunFilter
	lastID      int64
	lastReading service.ReadingFilter
}

func (m *mockRuns) ListRuns(ctx context.Context, f service.RunFilter) ([]models.Run, error) {
	m.lastFilter = f
	return m.runs, m.err
}
func (m *mockRuns) GetRun(ctx context.Context, id int64) (models.Run, error) {
	m.lastID = id
	return m.run, m.err
}
func (m *mockRuns) ListReadings(ctx context.Context, f service.ReadingFilter) ([]models.Reading, error) {
	m.lastReading = f
	return m.readings, m.err
}

type mockEventLog struct {
	resp []models.Event
	err  error
	last service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.Event, error) {
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
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

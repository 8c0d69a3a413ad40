package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/livechat-service/internal/api/http/handlers"
	"github.com/spec-kit/livechat-service/internal/auth"
	"github.com/spec-kit/livechat-service/internal/commands"
	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/events"
	"github.com/spec-kit/livechat-service/internal/observability"
	"github.com/spec-kit/livechat-service/internal/repository/memory"
	"github.com/spec-kit/livechat-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	agents *service.AgentService
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.NewStore()
	authCfg := config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	departments := service.NewDepartmentService(service.DepartmentDependencies{
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(),
		Metrics:    metrics,
		Logger:     logger,
	})
	agents := service.NewAgentService(authCfg, store.Agents(), departments, logger)
	authService := service.NewAuthService(authCfg, store.Agents())
	bus := commands.NewLocalBus(nil, logger)
	commands.RegisterLivechatMethods(bus, departments, agents)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("livechat-service", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Departments:    handlers.NewDepartmentsHandler(departments),
		Agents:         handlers.NewAgentsHandler(agents, departments),
		Methods:        handlers.NewMethodsHandler(bus),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Agents()),
		Gatherer:       registry,
	})

	require.NoError(t, agents.EnsureBootstrapAdmin(ctx, "root", "password1"))
	s := &testServer{app: app, agents: agents}
	s.admin = s.login(t, "root", "password1")
	return s
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp struct {
		Data struct {
			Auth struct {
				Token string `json:"token"`
			} `json:"auth"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Data.Auth.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope), string(body))
	return envelope.Data
}

type departmentView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	NumAgents int    `json:"numAgents"`
}

type assignmentView struct {
	AgentID           string `json:"agentId"`
	DepartmentEnabled bool   `json:"departmentEnabled"`
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "livechat_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/v1/departments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "UNAUTHORIZED")

	status, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "root", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAgentRoleCannotManageDepartments(t *testing.T) {
	s := newTestServer(t)
	_, err := s.agents.CreateAgent(context.Background(), service.CreateAgentInput{Username: "ann", Password: "password1"})
	require.NoError(t, err)
	token := s.login(t, "ann", "password1")

	status, _ := s.do(t, http.MethodPost, "/api/v1/departments", token, map[string]any{"name": "Sales"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/departments", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDepartmentLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/departments", s.admin, map[string]any{"name": "Sales", "enabled": true})
	require.Equal(t, http.StatusCreated, status, string(body))
	dept := decodeData[departmentView](t, body)
	require.NotEmpty(t, dept.ID)

	status, _ = s.do(t, http.MethodPost, "/api/v1/departments", s.admin, map[string]any{"enabled": true})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodPost, "/api/v1/agents", s.admin, map[string]any{"username": "ann", "password": "password1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	agentID := decodeData[struct {
		ID string `json:"id"`
	}](t, body).ID

	status, body = s.do(t, http.MethodPut, "/api/v1/agents/"+agentID+"/departments", s.admin, map[string]any{"departmentIds": []string{dept.ID}})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(t, http.MethodGet, "/api/v1/departments/enabled-with-agents", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeData[[]departmentView](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].NumAgents)

	status, body = s.do(t, http.MethodPut, "/api/v1/departments/"+dept.ID, s.admin, map[string]any{"name": "Sales", "enabled": false})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.False(t, decodeData[departmentView](t, body).Enabled)

	status, body = s.do(t, http.MethodGet, "/api/v1/departments/"+dept.ID+"/agents", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
	roster := decodeData[[]assignmentView](t, body)
	require.Len(t, roster, 1)
	assert.Equal(t, agentID, roster[0].AgentID)
	assert.False(t, roster[0].DepartmentEnabled)

	status, body = s.do(t, http.MethodGet, "/api/v1/departments/lookup/Sales", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, dept.ID, decodeData[departmentView](t, body).ID)

	status, _ = s.do(t, http.MethodPatch, "/api/v1/departments/"+dept.ID, s.admin, map[string]any{"name": "Revenue"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodDelete, "/api/v1/departments/"+dept.ID, s.admin, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.do(t, http.MethodDelete, "/api/v1/departments/"+dept.ID, s.admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = s.do(t, http.MethodGet, "/api/v1/departments/"+dept.ID, s.admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSaveAgentDepartmentsUnknownDepartment(t *testing.T) {
	s := newTestServer(t)
	agent, err := s.agents.CreateAgent(context.Background(), service.CreateAgentInput{Username: "ann", Password: "password1"})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPut, "/api/v1/agents/"+agent.ID+"/departments", s.admin, map[string]any{"departmentIds": []string{"missing"}})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestAgentReadsOwnDepartmentsOnly(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	ann, err := s.agents.CreateAgent(ctx, service.CreateAgentInput{Username: "ann", Password: "password1"})
	require.NoError(t, err)
	bob, err := s.agents.CreateAgent(ctx, service.CreateAgentInput{Username: "bob", Password: "password1", Role: domain.AgentRoleAgent})
	require.NoError(t, err)
	token := s.login(t, "ann", "password1")

	status, _ := s.do(t, http.MethodGet, "/api/v1/agents/"+ann.ID+"/departments", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/v1/agents/"+bob.ID+"/departments", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestInvokeMethods(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/v1/methods/livechat:saveDepartment", s.admin, map[string]any{
		"params": []any{nil, map[string]any{"name": "Support", "enabled": true}},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	dept := decodeData[departmentView](t, body)
	assert.Equal(t, "Support", dept.Name)

	status, body = s.do(t, http.MethodPost, "/api/v1/methods/livechat:getDepartment", s.admin, map[string]any{
		"params": []any{dept.ID},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	got := decodeData[struct {
		Department departmentView   `json:"department"`
		Agents     []assignmentView `json:"agents"`
	}](t, body)
	assert.Equal(t, dept.ID, got.Department.ID)
	assert.Empty(t, got.Agents)

	status, body = s.do(t, http.MethodPost, "/api/v1/methods/livechat:nope", s.admin, map[string]any{"params": []any{}})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "UNKNOWN_METHOD")

	status, body = s.do(t, http.MethodGet, "/api/v1/methods", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, decodeData[[]string](t, body), commands.MethodSaveAgentDepartments)
}

func TestReconcileEndpoint(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodPost, "/api/v1/departments", s.admin, map[string]any{"name": "Sales", "enabled": true})
	require.Equal(t, http.StatusCreated, status)
	dept := decodeData[departmentView](t, body)

	status, _ = s.do(t, http.MethodPut, "/api/v1/departments/"+dept.ID+"/num-agents", s.admin, map[string]any{"numAgents": 4})
	require.Equal(t, http.StatusNoContent, status)

	status, body = s.do(t, http.MethodPost, "/api/v1/departments/reconcile", s.admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{dept.ID}, decodeData[struct {
		Corrected []string `json:"corrected"`
	}](t, body).Corrected)
}

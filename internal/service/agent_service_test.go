package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/repository/memory"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

func newAgentServices(t *testing.T) (*memory.Store, *DepartmentService, *AgentService, *AuthService) {
	t.Helper()
	store := memory.NewStore()
	authCfg := config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}
	departments := NewDepartmentService(DepartmentDependencies{Store: store})
	agents := NewAgentService(authCfg, store.Agents(), departments, nil)
	return store, departments, agents, NewAuthService(authCfg, store.Agents())
}

func requireDomainStatus(t *testing.T, err error, status int) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	assert.Equal(t, status, domainErr.HTTPStatus)
}

func TestCreateAgentValidatesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	_, _, agents, _ := newAgentServices(t)

	_, err := agents.CreateAgent(ctx, CreateAgentInput{Username: "", Password: "short", Role: "pilot"})
	requireDomainStatus(t, err, http.StatusBadRequest)

	agent, err := agents.CreateAgent(ctx, CreateAgentInput{Username: "ann", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAgent, agent.Role)
	assert.NotEqual(t, "password1", agent.PasswordHash)

	_, err = agents.CreateAgent(ctx, CreateAgentInput{Username: "ann", Password: "password2"})
	requireDomainStatus(t, err, http.StatusConflict)
}

func TestSaveAgentDepartmentsUsesAgentUsername(t *testing.T) {
	ctx := context.Background()
	_, departments, agents, _ := newAgentServices(t)
	dept, err := departments.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "Sales", Enabled: true})
	require.NoError(t, err)
	agent, err := agents.CreateAgent(ctx, CreateAgentInput{Username: "ann", Password: "password1"})
	require.NoError(t, err)

	res, err := agents.SaveAgentDepartments(ctx, agent.ID, []string{dept.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{dept.ID}, res.Added)

	roster, err := departments.DepartmentAgents(ctx, dept.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "ann", roster[0].Username)

	_, err = agents.SaveAgentDepartments(ctx, "ghost", []string{dept.ID})
	requireDomainStatus(t, err, http.StatusNotFound)

	_, err = agents.SaveAgentDepartments(ctx, agent.ID, []string{"missing"})
	requireDomainStatus(t, err, http.StatusNotFound)
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, agents, _ := newAgentServices(t)

	require.NoError(t, agents.EnsureBootstrapAdmin(ctx, "root", "password1"))
	require.NoError(t, agents.EnsureBootstrapAdmin(ctx, "root", "password1"))
	require.NoError(t, agents.EnsureBootstrapAdmin(ctx, "", ""))

	admin, err := store.Agents().GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleAdmin, admin.Role)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	_, _, agents, authService := newAgentServices(t)
	_, err := agents.CreateAgent(ctx, CreateAgentInput{Username: "ann", Password: "password1", Role: domain.AgentRoleManager})
	require.NoError(t, err)

	agent, token, err := authService.Login(ctx, "ann", "password1")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, token.AgentID)

	claims, err := authService.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentRoleManager, claims.Role)

	_, _, err = authService.Login(ctx, "ann", "wrong")
	requireDomainStatus(t, err, http.StatusUnauthorized)
	_, _, err = authService.Login(ctx, "nobody", "password1")
	requireDomainStatus(t, err, http.StatusUnauthorized)
}

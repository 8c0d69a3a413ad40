package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/events"
	"github.com/spec-kit/livechat-service/internal/repository/memory"
)

type recordingBroadcaster struct {
	channels []string
	payloads []any
	err      error
}

func (b *recordingBroadcaster) Notify(_ context.Context, channel string, payload any) error {
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return b.err
}

func TestNotificationServiceForwardsDepartmentEvents(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher()
	broadcaster := &recordingBroadcaster{}
	NewNotificationService(dispatcher, broadcaster, zap.NewNop(), config.NotifyConfig{Channel: "depts"}).RegisterHandlers()

	departments := NewDepartmentService(DepartmentDependencies{Store: memory.NewStore(), Dispatcher: dispatcher})
	dept, err := departments.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "Sales", Enabled: true})
	require.NoError(t, err)
	_, err = departments.SaveDepartmentsByAgent(ctx, domain.AgentRef{ID: "a1", Username: "ann"}, []string{dept.ID})
	require.NoError(t, err)

	assert.Equal(t, []string{"depts", "depts"}, broadcaster.channels)
	require.Len(t, broadcaster.payloads, 2)
	last, ok := broadcaster.payloads[1].(events.Event)
	require.True(t, ok)
	assert.Equal(t, events.EventAgentDepartmentsChanged, last.Type)
	assert.Equal(t, "a1", last.AgentID)
	assert.NotEmpty(t, last.ID)
}

func TestNotifyFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher()
	broadcaster := &recordingBroadcaster{err: errors.New("redis down")}
	NewNotificationService(dispatcher, broadcaster, zap.NewNop(), config.NotifyConfig{Channel: "depts"}).RegisterHandlers()

	departments := NewDepartmentService(DepartmentDependencies{Store: memory.NewStore(), Dispatcher: dispatcher})
	dept, err := departments.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "Sales"})
	require.NoError(t, err)
	assert.NotEmpty(t, dept.ID)
	assert.Len(t, broadcaster.channels, 1)
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/events"
)

// Broadcaster sends one-way payloads to a channel.
type Broadcaster interface {
	Notify(ctx context.Context, channel string, payload any) error
}

// NotificationService forwards department events to the broadcast channel.
type NotificationService struct {
	dispatcher  events.Dispatcher
	broadcaster Broadcaster
	logger      *zap.Logger
	channel     string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, broadcaster Broadcaster, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
		channel:     cfg.Channel,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.broadcaster == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventDepartmentSaved,
		events.EventDepartmentEnabledChanged,
		events.EventDepartmentRemoved,
		events.EventAgentDepartmentsChanged,
	} {
		n.dispatcher.Subscribe(eventType, n.forward)
	}
}

// forward never fails the publishing operation; the write is already
// committed when events fire.
func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if err := n.broadcaster.Notify(ctx, n.channel, event); err != nil {
		n.logger.Warn("notify failed",
			zap.String("channel", n.channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

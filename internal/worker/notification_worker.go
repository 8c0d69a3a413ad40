package worker

import (
	"context"

	"github.com/spec-kit/livechat-service/internal/service"
)

// InvalidationListener drops local cache entries that other replicas
// invalidated.
type InvalidationListener interface {
	Listen(ctx context.Context)
}

// StartNotificationWorker wires the outbound and inbound sides of the
// department notification flow: department events are forwarded to the
// broadcast channel, and peer cache invalidations are consumed in the
// background until ctx is done. Either side may be nil.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService, listener InvalidationListener) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if listener != nil {
		go listener.Listen(ctx)
	}
}

// Package commands implements the named-method dispatch used by the
// /methods endpoint and the one-way notification channel.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownMethod is returned by Invoke for unregistered names.
var ErrUnknownMethod = errors.New("unknown method")

// Handler executes a method with its positional JSON parameters.
type Handler func(ctx context.Context, params []json.RawMessage) (any, error)

// Notifier delivers one-way payloads to a named channel.
type Notifier interface {
	Notify(ctx context.Context, channel string, payload any) error
}

// Bus invokes named methods and broadcasts notifications.
type Bus interface {
	Invoke(ctx context.Context, name string, params ...json.RawMessage) (any, error)
	Notify(ctx context.Context, channel string, payload any) error
}

// LocalBus dispatches methods registered in this process.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	notifier Notifier
	logger   *zap.Logger
}

// NewLocalBus creates a bus. A nil notifier makes Notify log only.
func NewLocalBus(notifier Notifier, logger *zap.Logger) *LocalBus {
	return &LocalBus{
		handlers: make(map[string]Handler),
		notifier: notifier,
		logger:   logger,
	}
}

// Register binds name to h, replacing any previous handler.
func (b *LocalBus) Register(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = h
}

// Methods lists registered method names in order.
func (b *LocalBus) Methods() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *LocalBus) Invoke(ctx context.Context, name string, params ...json.RawMessage) (any, error) {
	b.mu.RLock()
	h, ok := b.handlers[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return h(ctx, params)
}

func (b *LocalBus) Notify(ctx context.Context, channel string, payload any) error {
	if b.notifier == nil {
		b.logger.Debug("notify", zap.String("channel", channel), zap.Any("payload", payload))
		return nil
	}
	return b.notifier.Notify(ctx, channel, payload)
}

// Param decodes params[i] into dst. A missing or null parameter leaves dst
// untouched and reports false.
func Param(params []json.RawMessage, i int, dst any) (bool, error) {
	if i >= len(params) || len(params[i]) == 0 || string(params[i]) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(params[i], dst); err != nil {
		return false, fmt.Errorf("param %d: %w", i, err)
	}
	return true, nil
}

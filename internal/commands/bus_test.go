package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	channel string
	payload any
}

func (n *recordingNotifier) Notify(_ context.Context, channel string, payload any) error {
	n.channel = channel
	n.payload = payload
	return nil
}

func TestInvokeRegisteredMethod(t *testing.T) {
	bus := NewLocalBus(nil, zap.NewNop())
	bus.Register("math:add", func(_ context.Context, params []json.RawMessage) (any, error) {
		var a, b int
		if _, err := Param(params, 0, &a); err != nil {
			return nil, err
		}
		if _, err := Param(params, 1, &b); err != nil {
			return nil, err
		}
		return a + b, nil
	})

	got, err := bus.Invoke(context.Background(), "math:add", json.RawMessage(`2`), json.RawMessage(`3`))
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	assert.Equal(t, []string{"math:add"}, bus.Methods())
}

func TestInvokeUnknownMethod(t *testing.T) {
	bus := NewLocalBus(nil, zap.NewNop())
	_, err := bus.Invoke(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestParamHandlesMissingAndNull(t *testing.T) {
	var s string
	ok, err := Param(nil, 0, &s)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Param([]json.RawMessage{json.RawMessage(`null`)}, 0, &s)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Param([]json.RawMessage{json.RawMessage(`{"a":1}`)}, 0, &s)
	assert.Error(t, err)
}

func TestNotifyDelegatesToNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	bus := NewLocalBus(notifier, zap.NewNop())

	require.NoError(t, bus.Notify(context.Background(), "livechat-departments", map[string]string{"id": "d1"}))
	assert.Equal(t, "livechat-departments", notifier.channel)
	assert.Equal(t, map[string]string{"id": "d1"}, notifier.payload)
}

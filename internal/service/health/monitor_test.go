package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestMonitorCheck(t *testing.T) {
	var fail error
	m := NewMonitor(pingFunc(func(context.Context) error { return fail }), nil)

	status, _ := m.Status()
	assert.Equal(t, StatusChecking, status)

	var seen []Status
	m.Subscribe(func() {
		s, _ := m.Status()
		seen = append(seen, s)
	})

	assert.Equal(t, StatusConnected, m.Check(context.Background()))

	fail = errors.New("connection refused")
	assert.Equal(t, StatusDisconnected, m.Check(context.Background()))

	status, err := m.Status()
	assert.Equal(t, StatusDisconnected, status)
	require.Error(t, err)

	assert.Equal(t, []Status{StatusConnected, StatusChecking, StatusDisconnected}, seen)
}

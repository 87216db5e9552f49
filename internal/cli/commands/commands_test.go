package commands

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindpeers/client/internal/cli/ui"
	"github.com/zhouzirui/mindpeers/client/internal/config"
	"github.com/zhouzirui/mindpeers/client/internal/handler"
	"github.com/zhouzirui/mindpeers/client/internal/service/replay"
	"github.com/zhouzirui/mindpeers/client/internal/service/session"
)

// withStub points the CLI at an in-process replay service and an in-memory
// identity store shared across invocations.
func withStub(t *testing.T) (*session.MemoryStore, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(handler.NewRouter(replay.NewService(nil, nil), nil))
	t.Cleanup(srv.Close)

	t.Setenv("MINDPEERS_API_URL", srv.URL)
	t.Setenv("MINDPEERS_IDENTITY_FILE", filepath.Join(t.TempDir(), "identity.yaml"))
	t.Setenv("MINDPEERS_LOG_FILE", "")

	store := session.NewMemoryStore(nil)
	prevStore := newStore
	newStore = func(*config.Config) session.Store { return store }

	var out bytes.Buffer
	prevOut, prevNoColor := ui.Out, color.NoColor
	ui.Out, color.NoColor = &out, true

	t.Cleanup(func() {
		newStore = prevStore
		ui.Out, color.NoColor = prevOut, prevNoColor
		current = nil
		loginEmail, loginPhone, loginAgree = "", "", false
		serverFlag = ""
	})
	return store, &out
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	return rootCmd.Execute()
}

func TestLoginThenWhoamiAndLogout(t *testing.T) {
	store, out := withStub(t)

	require.NoError(t, run(t, "login", "-e", "ada@example.com", "--agree", "--phone", "+1 555 0100"))
	assert.Contains(t, out.String(), "Welcome to MindPeers")

	identity, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", identity.Email)

	out.Reset()
	require.NoError(t, run(t, "whoami"))
	assert.Contains(t, out.String(), "ada@example.com")

	out.Reset()
	require.NoError(t, run(t, "trend"))
	assert.Contains(t, out.String(), "No sentiment data yet")

	require.NoError(t, run(t, "logout"))
	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommandsRequireSession(t *testing.T) {
	_, out := withStub(t)

	assert.ErrorIs(t, run(t, "trend"), errNotLoggedIn)
	assert.ErrorIs(t, run(t, "chat"), errNotLoggedIn)
	assert.Contains(t, out.String(), "mindpeers login")
}

func TestPing(t *testing.T) {
	_, out := withStub(t)

	require.NoError(t, run(t, "ping"))
	assert.Contains(t, out.String(), "Connected to")
}

func TestPingUnreachable(t *testing.T) {
	_, out := withStub(t)
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	assert.Error(t, run(t, "ping", "--server", url))
	assert.Contains(t, out.String(), "Disconnected")
}

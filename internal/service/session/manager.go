// Package session manages the identity lifecycle around the conversation:
// resume, login, consent and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/model/chat"
	"github.com/zhouzirui/mindpeers/client/internal/service/api"
	"github.com/zhouzirui/mindpeers/client/pkg/notify"
)

// Stage is where the user is in the login flow.
type Stage string

const (
	StageLogin   Stage = "login"
	StageConsent Stage = "consent"
	StageChat    Stage = "chat"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrNotLoggedIn   = errors.New("not logged in")
)

// FieldError is a login or consent failure meant to be shown next to the
// form field. Message is the complete user-facing text.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return e.Err }

// Authenticator is the part of the remote service the session talks to.
type Authenticator interface {
	Login(ctx context.Context, email string) (chat.Identity, error)
	Consent(ctx context.Context, userID, emergencyPhone string) error
}

// Manager owns the current identity and mirrors it into a Store.
// Failed login or consent never changes the identity.
type Manager struct {
	auth  Authenticator
	store Store
	log   *zap.Logger
	hub   notify.Hub

	mu       sync.RWMutex
	identity *chat.Identity
	stage    Stage
	teardown []func()
}

func NewManager(auth Authenticator, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		auth:  auth,
		store: store,
		log:   logger.Named("session"),
		stage: StageLogin,
	}
}

// OnLogout registers fn to run when the session is torn down.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	m.teardown = append(m.teardown, fn)
	m.mu.Unlock()
}

// Resume loads a persisted identity. When one exists the session goes
// straight to the chat stage.
func (m *Manager) Resume() (bool, error) {
	identity, ok, err := m.store.Load()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	m.identity = &identity
	m.stage = StageChat
	m.mu.Unlock()

	m.log.Info("session resumed", zap.String("user_id", identity.UserID))
	m.hub.Notify()
	return true, nil
}

// Login exchanges email for an identity, persists it and moves to consent.
func (m *Manager) Login(ctx context.Context, email string) (chat.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return chat.Identity{}, &FieldError{Field: "email", Message: "Login failed: Email is required", Err: ErrEmailRequired}
	}

	identity, err := m.auth.Login(ctx, email)
	if err != nil {
		m.log.Warn("login failed", zap.String("kind", api.Kind(err)), zap.Error(err))
		return chat.Identity{}, fieldError("email", "Login", err)
	}

	if err := m.store.Save(identity); err != nil {
		return chat.Identity{}, fmt.Errorf("persist identity: %w", err)
	}

	m.mu.Lock()
	m.identity = &identity
	m.stage = StageConsent
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("user_id", identity.UserID))
	m.hub.Notify()
	return identity, nil
}

// Consent records consent for the current user and moves to chat.
func (m *Manager) Consent(ctx context.Context, emergencyPhone string) error {
	identity, ok := m.Current()
	if !ok {
		return &FieldError{Field: "consent", Message: "Consent failed: not logged in", Err: ErrNotLoggedIn}
	}

	if err := m.auth.Consent(ctx, identity.UserID, emergencyPhone); err != nil {
		m.log.Warn("consent failed", zap.String("kind", api.Kind(err)), zap.Error(err))
		return fieldError("emergency_phone", "Consent", err)
	}

	m.mu.Lock()
	m.stage = StageChat
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

// Logout clears the persisted identity and runs teardown hooks.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return err
	}

	m.mu.Lock()
	m.identity = nil
	m.stage = StageLogin
	hooks := append([]func(){}, m.teardown...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	m.log.Info("logged out")
	m.hub.Notify()
	return nil
}

// Current returns the logged-in identity.
func (m *Manager) Current() (chat.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return chat.Identity{}, false
	}
	return *m.identity, true
}

// Stage returns the current stage of the login flow.
func (m *Manager) Stage() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stage
}

// Subscribe registers fn for change notifications.
func (m *Manager) Subscribe(fn func()) func() {
	return m.hub.Subscribe(fn)
}

// fieldError renders "<Action> failed: <server message>" for a rejection and
// "<Action> error: <cause>" when the service could not be reached.
func fieldError(field, action string, err error) *FieldError {
	var svcErr *api.ServiceError
	if errors.As(err, &svcErr) {
		detail := svcErr.Message
		if detail == "" {
			detail = "Unknown error"
		}
		return &FieldError{Field: field, Message: action + " failed: " + detail, Err: err}
	}
	return &FieldError{Field: field, Message: action + " error: " + err.Error(), Err: err}
}

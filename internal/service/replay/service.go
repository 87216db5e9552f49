// Package replay is an in-memory stand-in for the remote analysis service.
// It answers from a Script and keeps a per-user journal for the trend view.
package replay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
)

// previewWidth bounds the message preview in trend points.
const previewWidth = 50

var (
	ErrEmailRequired   = errors.New("email is required")
	ErrUserIDRequired  = errors.New("user id is required")
	ErrMessageRequired = errors.New("user id and message text are required")
	ErrUserNotFound    = errors.New("user not found")
)

// User is a registered account.
type User struct {
	ID             int64
	Email          string
	ConsentGiven   bool
	EmergencyPhone string
	CreatedAt      time.Time
}

// Entry is one journalled user message.
type Entry struct {
	Text      string
	Response  Response
	CreatedAt time.Time
}

// Service holds users and their journals.
type Service struct {
	script *Script
	log    *zap.Logger

	mu      sync.RWMutex
	nextID  int64
	users   map[int64]*User
	byEmail map[string]int64
	journal map[int64][]Entry
}

// NewService bootstraps the stand-in service around script.
func NewService(script *Script, logger *zap.Logger) *Service {
	if script == nil {
		script = DefaultScript()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		script:  script,
		log:     logger.Named("replay"),
		users:   make(map[int64]*User),
		byEmail: make(map[string]int64),
		journal: make(map[int64][]Entry),
	}
}

// Login returns the user for email, creating it on first sight.
func (s *Service) Login(_ context.Context, email string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, ErrEmailRequired
	}
	key := strings.ToLower(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[key]; ok {
		s.log.Info("existing user logged in", zap.Int64("user_id", id))
		return *s.users[id], nil
	}

	s.nextID++
	user := &User{ID: s.nextID, Email: email, CreatedAt: time.Now().UTC()}
	s.users[user.ID] = user
	s.byEmail[key] = user.ID
	s.journal[user.ID] = make([]Entry, 0, 16)
	s.log.Info("new user created", zap.Int64("user_id", user.ID))
	return *user, nil
}

// Consent records consent. Repeating it updates the emergency phone.
func (s *Service) Consent(_ context.Context, userID int64, emergencyPhone string) error {
	if userID == 0 {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.ConsentGiven = true
	user.EmergencyPhone = strings.TrimSpace(emergencyPhone)
	return nil
}

// Message answers text from the script and journals it.
func (s *Service) Message(_ context.Context, userID int64, text string) (Response, error) {
	if userID == 0 || strings.TrimSpace(text) == "" {
		return Response{}, ErrMessageRequired
	}

	resp := s.script.Match(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return Response{}, ErrUserNotFound
	}
	s.journal[userID] = append(s.journal[userID], Entry{
		Text:      text,
		Response:  Response{Rule: resp.Rule, Reply: resp.Reply, Analysis: resp.Analysis.Clone()},
		CreatedAt: time.Now().UTC(),
	})

	s.log.Debug("replayed message",
		zap.Int64("user_id", userID),
		zap.String("rule", resp.Rule),
		zap.Stringer("severity", resp.Analysis.Severity))
	return resp, nil
}

// Trend returns the user's polarity series and its summary. A user with no
// messages yields an empty series and a nil summary.
func (s *Service) Trend(_ context.Context, userID int64) ([]trend.Point, *trend.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, nil, ErrUserNotFound
	}

	entries := s.journal[userID]
	points := make([]trend.Point, 0, len(entries))
	for i, e := range entries {
		points = append(points, trend.Point{
			Index:          i + 1,
			Polarity:       e.Response.Analysis.Polarity,
			MessagePreview: preview(e.Text),
		})
	}
	return points, trend.Summarize(points), nil
}

// Journal returns a copy of the user's journal.
func (s *Service) Journal(userID int64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.journal[userID]
	copied := make([]Entry, len(entries))
	for i, e := range entries {
		e.Response.Analysis = e.Response.Analysis.Clone()
		copied[i] = e
	}
	return copied
}

// User looks up a user by id.
func (s *Service) User(userID int64) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return User{}, false
	}
	return *user, true
}

func preview(text string) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= previewWidth {
		return string(runes)
	}
	return string(runes[:previewWidth]) + "..."
}

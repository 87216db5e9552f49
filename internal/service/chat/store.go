// Package chat owns the active conversation: optimistic appends, the single
// in-flight send, and merging classification results back onto the message
// that triggered them.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	"github.com/zhouzirui/mindpeers/client/internal/model/chat"
	"github.com/zhouzirui/mindpeers/client/internal/service/api"
	"github.com/zhouzirui/mindpeers/client/pkg/notify"
)

// FallbackReply is the text of the synthesized bot message after a failed send.
const FallbackReply = "I'm having trouble responding right now. Please try again."

var (
	ErrBlankMessage = errors.New("message is blank")
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrNoIdentity   = errors.New("no logged-in user")
	ErrNotPending   = errors.New("submission is not pending")
)

// ValidationError reports a submission rejected locally. Nothing was sent
// and the conversation is unchanged.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("message rejected: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// MessageSender classifies one user message remotely.
type MessageSender interface {
	SendMessage(ctx context.Context, userID, text string) (api.Reply, error)
}

// IdentitySource yields the logged-in user, if any.
type IdentitySource interface {
	Current() (chat.Identity, bool)
}

// SeverityObserver receives every successfully merged analysis.
type SeverityObserver interface {
	Observe(a analysis.Analysis)
}

// Submission captures what Begin sent so the outcome can be merged onto the
// right message later.
type Submission struct {
	MessageID string
	UserID    string
	Text      string
}

// Store is the conversation state for one session.
type Store struct {
	sender   MessageSender
	identity IdentitySource
	severity SeverityObserver
	log      *zap.Logger
	hub      notify.Hub
	now      func() time.Time

	// observeMu orders severity observations against Reset, so a
	// completion that loses the race with logout never reaches the banner.
	observeMu  sync.Mutex
	generation uint64

	mu       sync.RWMutex
	messages []chat.Message
	index    map[string]int
	input    string
	pending  string
	lastTime time.Time
}

// NewStore wires the store to its collaborators. severity may be nil.
func NewStore(sender MessageSender, identity IdentitySource, severity SeverityObserver, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sender:   sender,
		identity: identity,
		severity: severity,
		log:      logger.Named("conversation"),
		now:      time.Now,
		messages: make([]chat.Message, 0, 16),
		index:    make(map[string]int),
	}
}

// Begin validates text, appends the user message and marks the send in
// flight. The returned Submission must be settled with Resolve or Complete.
func (s *Store) Begin(text string) (Submission, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Submission{}, &ValidationError{Err: ErrBlankMessage}
	}

	who, ok := s.identity.Current()
	if !ok || !who.Valid() {
		return Submission{}, &ValidationError{Err: ErrNoIdentity}
	}

	s.mu.Lock()
	if s.pending != "" {
		s.mu.Unlock()
		return Submission{}, &ValidationError{Err: ErrSendInFlight}
	}

	msg := s.appendLocked(chat.Message{Sender: chat.SenderUser, Text: trimmed})
	s.input = ""
	s.pending = msg.ID
	s.mu.Unlock()

	s.hub.Notify()
	return Submission{MessageID: msg.ID, UserID: who.UserID, Text: trimmed}, nil
}

// Resolve sends the submission and merges the outcome.
func (s *Store) Resolve(ctx context.Context, sub Submission) error {
	reply, err := s.sender.SendMessage(ctx, sub.UserID, sub.Text)
	return s.Complete(sub, reply, err)
}

// Complete merges the outcome of sub. A submission settles exactly once;
// settling it again, or after Reset, returns ErrNotPending and changes nothing.
func (s *Store) Complete(sub Submission, reply api.Reply, sendErr error) error {
	if sendErr == nil {
		if err := reply.Analysis.Validate(); err != nil {
			sendErr = &api.ServiceError{Op: "send message", StatusCode: 200, Err: fmt.Errorf("%w: %v", api.ErrMalformedPayload, err)}
		}
	}

	s.mu.Lock()
	if sub.MessageID == "" || s.pending != sub.MessageID {
		s.mu.Unlock()
		return ErrNotPending
	}
	s.pending = ""
	generation := s.generation

	if sendErr != nil {
		s.appendLocked(chat.Message{Sender: chat.SenderBot, Text: FallbackReply, IsError: true})
		s.mu.Unlock()

		s.log.Warn("message send failed",
			zap.String("message_id", sub.MessageID),
			zap.String("kind", api.Kind(sendErr)),
			zap.Error(sendErr))
		s.hub.Notify()
		return nil
	}

	result := reply.Analysis.Clone()
	botAnalysis := result.Clone()
	s.appendLocked(chat.Message{Sender: chat.SenderBot, Text: reply.BotReply, Analysis: &botAnalysis})

	if i, ok := s.index[sub.MessageID]; ok && s.messages[i].Analysis == nil {
		userAnalysis := result.Clone()
		s.messages[i].Analysis = &userAnalysis
		s.messages[i].Entities = analysis.CloneEntities(result.Entities)
		if s.messages[i].Entities == nil {
			s.messages[i].Entities = []analysis.Entity{}
		}
	}
	s.mu.Unlock()

	s.log.Debug("message classified",
		zap.String("message_id", sub.MessageID),
		zap.Stringer("severity", result.Severity),
		zap.Float64("polarity", result.Polarity))

	s.observe(generation, result)
	s.hub.Notify()
	return nil
}

// observe forwards result to the severity observer unless the conversation
// was reset after the submission settled.
func (s *Store) observe(generation uint64, result analysis.Analysis) {
	if s.severity == nil {
		return
	}

	s.observeMu.Lock()
	defer s.observeMu.Unlock()

	s.mu.RLock()
	current := s.generation
	s.mu.RUnlock()
	if current != generation {
		s.log.Debug("analysis dropped after reset")
		return
	}
	s.severity.Observe(result)
}

// Submit is Begin followed by a blocking Resolve. Only validation failures
// are returned; send failures become an error message in the conversation.
func (s *Store) Submit(ctx context.Context, text string) error {
	sub, err := s.Begin(text)
	if err != nil {
		return err
	}
	if err := s.Resolve(ctx, sub); err != nil && !errors.Is(err, ErrNotPending) {
		return err
	}
	return nil
}

// SubmitAsync is Begin followed by Resolve on a new goroutine. The returned
// channel is closed once the submission has settled.
func (s *Store) SubmitAsync(ctx context.Context, text string) (<-chan struct{}, error) {
	sub, err := s.Begin(text)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Resolve(ctx, sub); err != nil {
			s.log.Debug("submission discarded", zap.String("message_id", sub.MessageID), zap.Error(err))
		}
	}()
	return done, nil
}

// SetInput replaces the pending-input buffer. Listeners are notified only
// when the text actually changed.
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	if s.input == text {
		s.mu.Unlock()
		return
	}
	s.input = text
	s.mu.Unlock()
	s.hub.Notify()
}

// Input returns the pending-input buffer.
func (s *Store) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// Messages returns a deep copy of the conversation in order.
func (s *Store) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.messages))
	for i, m := range s.messages {
		copied[i] = m.Clone()
	}
	return copied
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// InFlight reports whether a send is outstanding.
func (s *Store) InFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending != ""
}

// Reset drops the conversation on session teardown. An outstanding
// submission is orphaned and its outcome discarded.
func (s *Store) Reset() {
	s.observeMu.Lock()
	s.mu.Lock()
	s.generation++
	s.messages = make([]chat.Message, 0, 16)
	s.index = make(map[string]int)
	s.input = ""
	s.pending = ""
	s.mu.Unlock()
	s.observeMu.Unlock()

	s.hub.Notify()
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn func()) func() {
	return s.hub.Subscribe(fn)
}

// appendLocked stamps msg with an id and a timestamp no earlier than the
// previous message's, then appends it. Callers hold s.mu.
func (s *Store) appendLocked(msg chat.Message) chat.Message {
	msg.ID = s.newID()

	ts := s.now().UTC()
	if ts.Before(s.lastTime) {
		ts = s.lastTime
	}
	s.lastTime = ts
	msg.Timestamp = ts

	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Store) newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Package trend holds the mood series for the user currently being viewed.
package trend

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
	"github.com/zhouzirui/mindpeers/client/internal/service/api"
	"github.com/zhouzirui/mindpeers/client/pkg/notify"
)

var ErrUserRequired = errors.New("user id is required")

// Status is the aggregator's lifecycle flag.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Fetcher retrieves the mood series for a user.
type Fetcher interface {
	FetchTrend(ctx context.Context, userID string) (api.TrendResult, error)
}

// State is a snapshot of the aggregator. Points and Summary are only set
// when Status is ready; Err only when Status is error.
type State struct {
	Status  Status
	UserID  string
	Points  []trend.Point
	Summary *trend.Summary
	Err     string
}

// Empty reports a successful fetch that returned no data yet.
func (s State) Empty() bool {
	return s.Status == StatusReady && len(s.Points) == 0
}

// Aggregator re-fetches on every refresh. Nothing is cached across refreshes
// or users, and a failed refresh discards whatever was shown before.
type Aggregator struct {
	fetcher Fetcher
	log     *zap.Logger
	hub     notify.Hub

	mu    sync.RWMutex
	seq   uint64
	state State
}

func NewAggregator(fetcher Fetcher, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		fetcher: fetcher,
		log:     logger.Named("trend"),
		state:   State{Status: StatusIdle},
	}
}

// Refresh moves to loading, fetches, and settles into ready or error. When a
// newer refresh starts before this one finishes, this one's result is dropped
// and the returned state is whatever the aggregator holds at that point.
func (a *Aggregator) Refresh(ctx context.Context, userID string) State {
	userID = strings.TrimSpace(userID)

	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.state = State{Status: StatusLoading, UserID: userID}
	a.mu.Unlock()
	a.hub.Notify()

	var (
		result api.TrendResult
		err    error
	)
	if userID == "" {
		err = ErrUserRequired
	} else {
		result, err = a.fetcher.FetchTrend(ctx, userID)
	}

	a.mu.Lock()
	if seq != a.seq {
		current := a.state
		a.mu.Unlock()
		a.log.Debug("dropping superseded trend result", zap.String("user_id", userID))
		return current.clone()
	}

	if err != nil {
		a.state = State{Status: StatusError, UserID: userID, Err: errorText(err)}
	} else {
		points := result.Points
		if points == nil {
			points = []trend.Point{}
		}
		a.state = State{Status: StatusReady, UserID: userID, Points: points, Summary: result.Summary}
	}
	settled := a.state.clone()
	a.mu.Unlock()

	if err != nil {
		a.log.Warn("trend refresh failed",
			zap.String("user_id", userID),
			zap.String("kind", api.Kind(err)),
			zap.Error(err))
	} else {
		a.log.Debug("trend refreshed", zap.String("user_id", userID), zap.Int("points", len(settled.Points)))
	}

	a.hub.Notify()
	return settled
}

// State returns a copy of the current state.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.clone()
}

// Reset returns to idle and invalidates any refresh still running.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.seq++
	a.state = State{Status: StatusIdle}
	a.mu.Unlock()
	a.hub.Notify()
}

// Subscribe registers fn for change notifications.
func (a *Aggregator) Subscribe(fn func()) func() {
	return a.hub.Subscribe(fn)
}

func (s State) clone() State {
	if s.Points != nil {
		s.Points = append([]trend.Point(nil), s.Points...)
		if len(s.Points) == 0 {
			s.Points = []trend.Point{}
		}
	}
	if s.Summary != nil {
		summary := *s.Summary
		s.Summary = &summary
	}
	return s
}

// errorText is what the user sees: the server's own message when there is one.
func errorText(err error) string {
	var svcErr *api.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Detail()
	}
	return err.Error()
}

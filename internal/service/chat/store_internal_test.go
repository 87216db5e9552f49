package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	modelchat "github.com/zhouzirui/mindpeers/client/internal/model/chat"
)

type recordingObserver struct {
	seen []analysis.Severity
}

func (r *recordingObserver) Observe(a analysis.Analysis) {
	r.seen = append(r.seen, a.Severity)
}

func TestObserveSkipsAnalysisFromBeforeReset(t *testing.T) {
	observer := &recordingObserver{}
	s := NewStore(nil, nil, observer, nil)

	s.mu.RLock()
	settledAt := s.generation
	s.mu.RUnlock()

	// Logout lands between the merge and the banner update.
	s.Reset()
	s.observe(settledAt, analysis.Analysis{Severity: analysis.SeverityImminent})
	assert.Empty(t, observer.seen)

	s.observe(settledAt+1, analysis.Analysis{Severity: analysis.SeverityElevated})
	assert.Equal(t, []analysis.Severity{analysis.SeverityElevated}, observer.seen)
}

func TestAppendKeepsTimestampsMonotonic(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	s := NewStore(nil, nil, nil, nil)
	s.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	s.mu.Lock()
	a := s.appendLocked(modelchat.Message{Sender: modelchat.SenderUser, Text: "a"})
	b := s.appendLocked(modelchat.Message{Sender: modelchat.SenderBot, Text: "b"})
	c := s.appendLocked(modelchat.Message{Sender: modelchat.SenderUser, Text: "c"})
	s.mu.Unlock()

	assert.Equal(t, base, a.Timestamp)
	assert.Equal(t, base, b.Timestamp, "clock going backwards is clamped")
	assert.Equal(t, base.Add(time.Second), c.Timestamp)

	require.Len(t, s.index, 3)
	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)
}

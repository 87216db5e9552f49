package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	modelchat "github.com/zhouzirui/mindpeers/client/internal/model/chat"
	"github.com/zhouzirui/mindpeers/client/internal/service/api"
	chat "github.com/zhouzirui/mindpeers/client/internal/service/chat"
	"github.com/zhouzirui/mindpeers/client/internal/service/severity"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticIdentity struct {
	who modelchat.Identity
}

func (s staticIdentity) Current() (modelchat.Identity, bool) {
	return s.who, s.who.Valid()
}

type outcome struct {
	reply api.Reply
	err   error
}

// fakeSender answers from a per-text table. When gate is set, each call
// blocks until it receives a value from gate.
type fakeSender struct {
	mu      sync.Mutex
	answers map[string]outcome
	calls   []string
	gate    chan struct{}
}

func (f *fakeSender) SendMessage(ctx context.Context, userID, text string) (api.Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, userID+":"+text)
	answer, ok := f.answers[text]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return api.Reply{}, &api.ServiceError{Op: "send message", StatusCode: 500}
	}
	return answer.reply, answer.err
}

func (f *fakeSender) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func reply(text string, sev analysis.Severity, polarity float64, entities ...analysis.Entity) outcome {
	return outcome{reply: api.Reply{
		BotReply: text,
		Analysis: analysis.Analysis{
			Polarity: polarity,
			Severity: sev,
			Concern:  analysis.Concern{Label: analysis.NeutralConcern},
			Entities: entities,
		},
	}}
}

func newStore(sender *fakeSender) (*chat.Store, *severity.Machine) {
	machine := severity.NewMachine(nil)
	store := chat.NewStore(sender, staticIdentity{who: modelchat.Identity{UserID: "7", Email: "a@b.c"}}, machine, nil)
	return store, machine
}

func TestSubmitSuccessMergesAnalysis(t *testing.T) {
	anxious := reply("I hear you.", analysis.SeverityElevated, -0.4)
	anxious.reply.Analysis.Concern = analysis.Concern{Label: "anxiety", Confidence: 0.8}
	anxious.reply.Analysis.Entities = []analysis.Entity{}
	sender := &fakeSender{answers: map[string]outcome{"I'm feeling really anxious": anxious}}
	store, machine := newStore(sender)

	require.NoError(t, store.Submit(context.Background(), "  I'm feeling really anxious "))

	msgs := store.Messages()
	require.Len(t, msgs, 2)

	user, bot := msgs[0], msgs[1]
	assert.Equal(t, modelchat.SenderUser, user.Sender)
	assert.Equal(t, "I'm feeling really anxious", user.Text)
	require.True(t, user.HasAnalysis())
	assert.Equal(t, analysis.SeverityElevated, user.Analysis.Severity)
	assert.Equal(t, analysis.Concern{Label: "anxiety", Confidence: 0.8}, user.Analysis.Concern)
	assert.NotNil(t, user.Entities)
	assert.Empty(t, user.Entities)

	assert.Equal(t, modelchat.SenderBot, bot.Sender)
	assert.Equal(t, "I hear you.", bot.Text)
	assert.False(t, bot.IsError)
	require.True(t, bot.HasAnalysis())
	assert.Nil(t, bot.Entities)

	assert.Equal(t, analysis.SeverityElevated, machine.Current())
	assert.False(t, store.InFlight())
	assert.Equal(t, []string{"7:I'm feeling really anxious"}, sender.Calls())
}

func TestSubmitFailureAppendsSingleErrorMessage(t *testing.T) {
	sender := &fakeSender{answers: map[string]outcome{
		"hello":  reply("hi", analysis.SeverityDistressed, -0.6),
		"broken": {err: &api.NetworkError{Op: "send message", Err: errors.New("connection refused")}},
	}}
	store, machine := newStore(sender)

	require.NoError(t, store.Submit(context.Background(), "hello"))
	require.Equal(t, analysis.SeverityDistressed, machine.Current())

	require.NoError(t, store.Submit(context.Background(), "broken"))
	msgs := store.Messages()
	require.Len(t, msgs, 4)

	user, bot := msgs[2], msgs[3]
	assert.False(t, user.HasAnalysis())
	assert.Nil(t, user.Entities)
	assert.True(t, bot.IsError)
	assert.Equal(t, chat.FallbackReply, bot.Text)
	assert.False(t, bot.HasAnalysis())

	assert.Equal(t, analysis.SeverityDistressed, machine.Current(), "failed sends leave severity alone")
	assert.False(t, store.InFlight())
}

func TestSubmitTreatsInvalidAnalysisAsFailure(t *testing.T) {
	sender := &fakeSender{answers: map[string]outcome{"x": reply("ok", analysis.SeverityImminent, 4)}}
	store, machine := newStore(sender)

	require.NoError(t, store.Submit(context.Background(), "x"))
	msgs := store.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.False(t, msgs[0].HasAnalysis())
	assert.Equal(t, analysis.SeveritySafe, machine.Current())
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	sender := &fakeSender{}
	store, _ := newStore(sender)

	for _, text := range []string{"", "   ", "\n\t"} {
		err := store.Submit(context.Background(), text)
		var vErr *chat.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.ErrorIs(t, err, chat.ErrBlankMessage)
	}
	assert.Zero(t, store.Len())
	assert.Empty(t, sender.Calls())
}

func TestSubmitRequiresIdentity(t *testing.T) {
	sender := &fakeSender{}
	store := chat.NewStore(sender, staticIdentity{}, nil, nil)

	err := store.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, chat.ErrNoIdentity)
	assert.Zero(t, store.Len())
}

func TestSecondSubmitWhileInFlightIsNoop(t *testing.T) {
	gate := make(chan struct{})
	sender := &fakeSender{
		answers: map[string]outcome{"first": reply("ok", analysis.SeveritySafe, 0.2)},
		gate:    gate,
	}
	store, _ := newStore(sender)
	store.SetInput("first")

	done, err := store.SubmitAsync(context.Background(), store.Input())
	require.NoError(t, err)

	// The user message is visible before the request resolves.
	require.Equal(t, 1, store.Len())
	assert.True(t, store.InFlight())
	assert.Empty(t, store.Input())

	err = store.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, chat.ErrSendInFlight)
	assert.Equal(t, 1, store.Len())

	close(gate)
	<-done

	assert.Equal(t, 2, store.Len())
	assert.False(t, store.InFlight())
	assert.Len(t, sender.Calls(), 1)
}

func TestCompleteTargetsCapturedMessage(t *testing.T) {
	sender := &fakeSender{}
	store, machine := newStore(sender)
	work := analysis.Entity{Text: "work", Label: analysis.LabelWork}
	family := analysis.Entity{Text: "mom", Label: analysis.LabelFamily}

	first, err := store.Begin("work is hard")
	require.NoError(t, err)
	require.NoError(t, store.Complete(first, reply("that sounds tough", analysis.SeverityElevated, -0.3, work).reply, nil))

	second, err := store.Begin("my mom called")
	require.NoError(t, err)
	require.NoError(t, store.Complete(second, reply("how was it?", analysis.SeveritySafe, 0.4, family).reply, nil))

	msgs := store.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, first.MessageID, msgs[0].ID)
	assert.Equal(t, []analysis.Entity{work}, msgs[0].Entities)
	assert.Equal(t, analysis.SeverityElevated, msgs[0].Analysis.Severity)
	assert.Equal(t, second.MessageID, msgs[2].ID)
	assert.Equal(t, []analysis.Entity{family}, msgs[2].Entities)
	assert.Equal(t, analysis.SeveritySafe, msgs[2].Analysis.Severity)
	assert.Equal(t, analysis.SeveritySafe, machine.Current())
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	sender := &fakeSender{}
	store, machine := newStore(sender)

	first, err := store.Begin("one")
	require.NoError(t, err)
	require.NoError(t, store.Complete(first, reply("a", analysis.SeveritySafe, 0.1).reply, nil))

	second, err := store.Begin("two")
	require.NoError(t, err)

	// A late duplicate for the first submission must not touch anything.
	err = store.Complete(first, reply("late", analysis.SeverityImminent, -0.9).reply, nil)
	assert.ErrorIs(t, err, chat.ErrNotPending)
	assert.Equal(t, 3, store.Len())
	assert.True(t, store.InFlight())
	assert.Equal(t, analysis.SeveritySafe, machine.Current())

	require.NoError(t, store.Complete(second, reply("b", analysis.SeverityDistressed, -0.5).reply, nil))
	assert.ErrorIs(t, store.Complete(second, api.Reply{}, errors.New("again")), chat.ErrNotPending)

	msgs := store.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, 0.1, msgs[0].Analysis.Polarity)
	assert.Equal(t, -0.5, msgs[2].Analysis.Polarity)
}

func TestExactlyOneOutcomePerUserMessage(t *testing.T) {
	sender := &fakeSender{answers: map[string]outcome{
		"a": reply("ra", analysis.SeveritySafe, 0.5),
		"c": reply("rc", analysis.SeverityElevated, -0.2),
	}}
	store, _ := newStore(sender)

	var previous []modelchat.Message
	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Submit(context.Background(), text))
		current := store.Messages()

		require.GreaterOrEqual(t, len(current), len(previous))
		for i, old := range previous {
			assert.Equal(t, old.ID, current[i].ID)
			assert.Equal(t, old.Sender, current[i].Sender)
			assert.Equal(t, old.Timestamp, current[i].Timestamp)
		}
		previous = current
	}

	require.Len(t, previous, 8)
	for i := 0; i < len(previous); i += 2 {
		user, bot := previous[i], previous[i+1]
		require.Equal(t, modelchat.SenderUser, user.Sender)
		require.Equal(t, modelchat.SenderBot, bot.Sender)
		if bot.IsError {
			assert.False(t, user.HasAnalysis(), "message %q", user.Text)
			assert.False(t, bot.HasAnalysis())
		} else {
			assert.True(t, user.HasAnalysis(), "message %q", user.Text)
			assert.Equal(t, user.Analysis, bot.Analysis)
		}
		if i > 0 {
			assert.False(t, user.Timestamp.Before(previous[i-1].Timestamp))
		}
	}
}

func TestResetOrphansPendingSubmission(t *testing.T) {
	sender := &fakeSender{}
	store, machine := newStore(sender)

	sub, err := store.Begin("hello")
	require.NoError(t, err)
	store.Reset()

	assert.Zero(t, store.Len())
	assert.False(t, store.InFlight())
	assert.ErrorIs(t, store.Complete(sub, reply("hi", analysis.SeverityImminent, -1).reply, nil), chat.ErrNotPending)
	assert.Zero(t, store.Len())
	assert.Equal(t, analysis.SeveritySafe, machine.Current())
}

func TestMessagesReturnsDeepCopy(t *testing.T) {
	entity := analysis.Entity{Text: "exam", Label: analysis.LabelSchool}
	sender := &fakeSender{answers: map[string]outcome{"exam": reply("good luck", analysis.SeveritySafe, 0, entity)}}
	store, _ := newStore(sender)
	require.NoError(t, store.Submit(context.Background(), "exam"))

	msgs := store.Messages()
	msgs[0].Entities[0].Text = "mutated"
	msgs[0].Analysis.Severity = analysis.SeverityImminent

	fresh := store.Messages()
	assert.Equal(t, "exam", fresh[0].Entities[0].Text)
	assert.Equal(t, analysis.SeveritySafe, fresh[0].Analysis.Severity)
}

func TestSubscribersSeeEveryMutation(t *testing.T) {
	sender := &fakeSender{answers: map[string]outcome{"hi": reply("hello", analysis.SeveritySafe, 0.3)}}
	store, _ := newStore(sender)

	var lengths []int
	unsubscribe := store.Subscribe(func() { lengths = append(lengths, store.Len()) })
	defer unsubscribe()

	require.NoError(t, store.Submit(context.Background(), "hi"))
	assert.Equal(t, []int{1, 2}, lengths)
}

func TestSetInputNotifiesOnlyOnChange(t *testing.T) {
	store, _ := newStore(&fakeSender{})

	notified := 0
	unsubscribe := store.Subscribe(func() { notified++ })
	defer unsubscribe()

	store.SetInput("")
	assert.Zero(t, notified)

	store.SetInput("hel")
	store.SetInput("hel")
	store.SetInput("hello")
	assert.Equal(t, 2, notified)
	assert.Equal(t, "hello", store.Input())
}

// blockingObserver records observations and holds each one until released.
type blockingObserver struct {
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	events []string
}

func (b *blockingObserver) Observe(a analysis.Analysis) {
	close(b.entered)
	<-b.release
	b.record("observe " + a.Severity.String())
}

func (b *blockingObserver) record(event string) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *blockingObserver) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func TestResetWaitsForSeverityObservation(t *testing.T) {
	sender := &fakeSender{answers: map[string]outcome{"help": reply("I'm here.", analysis.SeverityImminent, -0.9)}}
	observer := &blockingObserver{entered: make(chan struct{}), release: make(chan struct{})}
	store := chat.NewStore(sender, staticIdentity{who: modelchat.Identity{UserID: "7"}}, observer, nil)

	done, err := store.SubmitAsync(context.Background(), "help")
	require.NoError(t, err)
	<-observer.entered

	resetDone := make(chan struct{})
	go func() {
		defer close(resetDone)
		store.Reset()
		observer.record("reset")
	}()

	select {
	case <-resetDone:
		t.Fatal("reset finished while the severity observation was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(observer.release)
	<-done
	<-resetDone

	assert.Equal(t, []string{"observe IMMINENT", "reset"}, observer.Events())
	assert.Zero(t, store.Len())
}

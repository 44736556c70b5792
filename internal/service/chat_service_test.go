package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/repository/memory"
	"bank-support-be/pkg/assistant"
	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/events"
	"bank-support-be/pkg/kb"
	"bank-support-be/pkg/llm"
	"bank-support-be/pkg/llm/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{ err error }

func (p failingProvider) Name() string { return "failing" }

func (p failingProvider) Generate(context.Context, string, []llm.Message, ...llm.Option) (*llm.Response, error) {
	return nil, p.err
}

// slowProvider blocks until the call deadline expires.
type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }

func (slowProvider) Generate(ctx context.Context, _ string, _ []llm.Message, _ ...llm.Option) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recordedEvents) ofType(t string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type chatFixture struct {
	svc       IChatService
	bus       *LocalEventBus
	recorded  *recordedEvents
	analytics IAnalyticsService
}

func newChatFixture(t *testing.T, provider llm.Provider, opts ChatOptions) *chatFixture {
	t.Helper()
	bus := NewLocalEventBus(nil)
	rec := &recordedEvents{}
	bus.Subscribe(rec.handle)
	analytics := NewAnalyticsService(nil, nil)

	svc := NewChatService(
		memory.NewSessionRepository(0),
		kb.NewSeededStore(),
		kb.NewMatcher(kb.DefaultMatchConfig()),
		assistant.NewAssembler(provider),
		dialog.NewTracker(0, 0, nil),
		analytics,
		bus,
		opts,
		nil,
	)
	return &chatFixture{svc: svc, bus: bus, recorded: rec, analytics: analytics}
}

func (f *chatFixture) session(t *testing.T) string {
	t.Helper()
	res, err := f.svc.CreateSession(context.Background(), &dto.CreateSessionRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionId)
	return res.SessionId
}

func (f *chatFixture) send(t *testing.T, sessionID, message string) *dto.ChatResponse {
	t.Helper()
	res, err := f.svc.SendMessage(context.Background(), &dto.ChatRequest{SessionId: sessionID, Message: message})
	require.NoError(t, err)
	return res
}

func TestSendMessageUnknownSession(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{})
	_, err := f.svc.SendMessage(context.Background(), &dto.ChatRequest{
		SessionId: "7b0e2f8c-3c59-4d1e-9a57-1f0b1c3d2e4f",
		Message:   "hello",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSendMessageAnswersFromKB(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{})
	id := f.session(t)

	res := f.send(t, id, "What are your checking account fees?")
	assert.Equal(t, string(kb.MethodExact), res.MatchMethod)
	require.NotEmpty(t, res.Matches)
	assert.Equal(t, "checking-fees", res.Matches[0].Id)
	assert.False(t, res.SuggestHandover)
	assert.NotContains(t, res.Reply, dialog.OfferSentence)

	hist, err := f.svc.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "user", hist.Messages[0].Role)
	assert.Equal(t, res.Reply, hist.Messages[1].Content)
}

func TestUnresolvedStreakPublishesEscalation(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{NotifyOnEscalation: true})
	id := f.session(t)

	first := f.send(t, id, "tell me a joke about space travel")
	assert.False(t, first.SuggestHandover)
	assert.Equal(t, string(kb.MethodNone), first.MatchMethod)

	second := f.send(t, id, "tell me a joke about space travel")
	assert.True(t, second.SuggestHandover)
	assert.True(t, strings.HasSuffix(second.Reply, dialog.OfferSentence))
	assert.Equal(t, string(dialog.StateHandoverOffered), second.State)

	f.bus.Wait()
	escalations := f.recorded.ofType(events.EscalationSuggested)
	require.Len(t, escalations, 1)
	assert.Equal(t, id, events.String(escalations[0], "sessionId"))
	assert.Equal(t, "tell me a joke about space travel", events.String(escalations[0], "lastUserMessage"))

	snap := f.analytics.Snapshot(context.Background())
	assert.EqualValues(t, 1, snap.HandoversSuggested)
	assert.EqualValues(t, 2, snap.KBQueries)
	assert.EqualValues(t, 0, snap.KBMatches)
}

func TestEscalationNotPublishedWhenDisabled(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{})
	id := f.session(t)

	f.send(t, id, "tell me a joke about space travel")
	res := f.send(t, id, "tell me a joke about space travel")
	require.True(t, res.SuggestHandover)

	f.bus.Wait()
	assert.Empty(t, f.recorded.ofType(events.EscalationSuggested))
}

func TestProviderFailureRepliesWithFailSafe(t *testing.T) {
	f := newChatFixture(t, failingProvider{err: errors.New("quota exceeded")}, ChatOptions{})
	id := f.session(t)

	res := f.send(t, id, "What are your checking account fees?")
	assert.True(t, strings.HasPrefix(res.Reply, dialog.Apology))
	assert.Contains(t, res.Reply, dialog.OfferSentence)
	assert.True(t, res.SuggestHandover)
	assert.NotContains(t, res.Reply, "quota")

	snap := f.analytics.Snapshot(context.Background())
	assert.EqualValues(t, 1, snap.ProviderFailures)
	assert.EqualValues(t, 1, snap.ProviderCounts["failing"])
}

func TestFailSafeDoesNotRepeatOffer(t *testing.T) {
	f := newChatFixture(t, failingProvider{err: errors.New("down")}, ChatOptions{})
	id := f.session(t)

	f.send(t, id, "hello there")
	res := f.send(t, id, "are you there?")
	assert.True(t, res.SuggestHandover)
	assert.Contains(t, res.Reply, dialog.AckPending)
	assert.NotContains(t, res.Reply, dialog.OfferSentence)
}

func TestProviderTimeout(t *testing.T) {
	f := newChatFixture(t, slowProvider{}, ChatOptions{ProviderTimeout: 20 * time.Millisecond})
	id := f.session(t)

	start := time.Now()
	res := f.send(t, id, "What are your checking account fees?")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, strings.HasPrefix(res.Reply, dialog.Apology))
	assert.True(t, res.SuggestHandover)
}

func TestSensitiveInputStoredRedacted(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{})
	id := f.session(t)

	res := f.send(t, id, "my card is 4111111111111111 and my password: hunter2")
	assert.Contains(t, res.Reply, assistant.SecurityReminder)

	hist, err := f.svc.History(context.Background(), id)
	require.NoError(t, err)
	assert.NotContains(t, hist.Messages[0].Content, "4111111111111111")
	assert.Contains(t, hist.Messages[0].Content, assistant.Redacted)
}

func TestEmptyMessageRejected(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{})
	id := f.session(t)

	_, err := f.svc.SendMessage(context.Background(), &dto.ChatRequest{SessionId: id, Message: "   "})
	assert.ErrorIs(t, err, dialog.ErrEmptyMessage)
}

func TestMetricsCountTurns(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{})
	id := f.session(t)
	f.send(t, id, "hi")
	f.send(t, id, "What are your checking account fees?")

	m, err := f.svc.Metrics(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.TotalTurns)
	assert.Equal(t, 1, m.ActiveSessions)
	assert.Equal(t, "mock", m.Provider)
	assert.Equal(t, kb.NewSeededStore().Snapshot().Len(), m.KBEntries)
	assert.EqualValues(t, 1, m.Analytics.TotalConversations)
	assert.EqualValues(t, 2, m.Analytics.TotalMessages)
	assert.Len(t, m.Analytics.Latencies, 2)
}

func TestGreetingsAndThanksNeverEscalate(t *testing.T) {
	f := newChatFixture(t, mock.New(), ChatOptions{NotifyOnEscalation: true})
	id := f.session(t)

	for _, msg := range []string{"hi", "hello", "thanks", "Thank you!"} {
		res := f.send(t, id, msg)
		assert.False(t, res.SuggestHandover, msg)
		assert.NotContains(t, res.Reply, dialog.OfferSentence, msg)
	}

	hist, err := f.svc.History(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, hist.UnresolvedStreak)
	assert.Equal(t, string(dialog.StateStable), hist.State)

	f.bus.Wait()
	assert.Empty(t, f.recorded.ofType(events.EscalationSuggested))
}

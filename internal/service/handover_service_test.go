package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/repository/memory"
	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*entity.HandoverTicket
	err     error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[uuid.UUID]*entity.HandoverTicket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, t *entity.HandoverTicket) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.Id] = t
	return nil
}

func (r *fakeTicketRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.HandoverTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id], nil
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"", true},
		{"+233 24 123 4567", true},
		{"233241234567", true},
		{"0241234567", true},
		{"024-123-4567", true},
		{"12345", false},
		{"+2332412", false},
		{"02412345678", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPhone)
			}
		})
	}
}

type handoverFixture struct {
	svc       IHandoverService
	sessions  *memory.SessionRepository
	tickets   *fakeTicketRepo
	bus       *LocalEventBus
	recorded  *recordedEvents
	analytics IAnalyticsService
}

func newHandoverFixture(t *testing.T) *handoverFixture {
	t.Helper()
	bus := NewLocalEventBus(nil)
	rec := &recordedEvents{}
	bus.Subscribe(rec.handle)
	sessions := memory.NewSessionRepository(0)
	tickets := newFakeTicketRepo()
	analytics := NewAnalyticsService(nil, nil)
	return &handoverFixture{
		svc:       NewHandoverService(sessions, tickets, analytics, bus, nil),
		sessions:  sessions,
		tickets:   tickets,
		bus:       bus,
		recorded:  rec,
		analytics: analytics,
	}
}

// sessionWithTurns saves a session holding n user/assistant exchanges.
func (f *handoverFixture) sessionWithTurns(t *testing.T, n int) *dialog.Session {
	t.Helper()
	tr := dialog.NewTracker(0, 0, nil)
	sess := dialog.NewSession("")
	for i := 0; i < n; i++ {
		_, err := tr.RecordUser(sess, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		_, err = tr.RecordAssistant(sess, fmt.Sprintf("answer %d", i), dialog.Decision{})
		require.NoError(t, err)
	}
	f.sessions.Save(sess)
	return sess
}

func TestHandoverUnknownSession(t *testing.T) {
	f := newHandoverFixture(t)
	_, err := f.svc.Request(context.Background(), &dto.HandoverRequest{SessionId: uuid.NewString()})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHandoverRejectsBadPhone(t *testing.T) {
	f := newHandoverFixture(t)
	sess := f.sessionWithTurns(t, 1)

	_, err := f.svc.Request(context.Background(), &dto.HandoverRequest{SessionId: sess.ID, Phone: "12345"})
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Empty(t, f.tickets.tickets)
}

func TestHandoverQueuesTicket(t *testing.T) {
	f := newHandoverFixture(t)
	sess := f.sessionWithTurns(t, 5)

	res, err := f.svc.Request(context.Background(), &dto.HandoverRequest{
		SessionId: sess.ID,
		Name:      "  Ama  ",
		Phone:     "0241234567",
		Message:   "card blocked",
	})
	require.NoError(t, err)
	assert.Equal(t, TicketStatusQueued, res.Status)

	ticket := f.tickets.tickets[uuid.MustParse(res.TicketId)]
	require.NotNil(t, ticket)
	assert.Equal(t, "Ama", ticket.Name)
	assert.Equal(t, sess.ID, ticket.SessionId.String())
	require.Len(t, ticket.Transcript, 6)
	assert.Equal(t, "answer 4", ticket.Transcript[5].Content)
	assert.Equal(t, "question 2", ticket.Transcript[0].Content)

	f.bus.Wait()
	evts := f.recorded.ofType(events.HandoverRequested)
	require.Len(t, evts, 1)
	assert.Equal(t, res.TicketId, events.String(evts[0], "ticketId"))
	assert.Equal(t, sess.ID, events.String(evts[0], "sessionId"))
	assert.Equal(t, "0241234567", events.String(evts[0], "phone"))

	assert.Equal(t, int64(1), f.analytics.Snapshot(context.Background()).HandoversCompleted)
}

func TestHandoverStorageFailure(t *testing.T) {
	f := newHandoverFixture(t)
	f.tickets.err = errors.New("db down")
	sess := f.sessionWithTurns(t, 1)

	_, err := f.svc.Request(context.Background(), &dto.HandoverRequest{SessionId: sess.ID})
	require.Error(t, err)

	f.bus.Wait()
	assert.Empty(t, f.recorded.ofType(events.HandoverRequested))
	assert.Zero(t, f.analytics.Snapshot(context.Background()).HandoversCompleted)
}

func TestHandoverWithoutDatabase(t *testing.T) {
	sessions := memory.NewSessionRepository(0)
	svc := NewHandoverService(sessions, nil, NewAnalyticsService(nil, nil), nil, nil)
	sess := dialog.NewSession("")
	sessions.Save(sess)

	res, err := svc.Request(context.Background(), &dto.HandoverRequest{SessionId: sess.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TicketId)

	_, err = svc.Ticket(context.Background(), res.TicketId)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestTicketLookup(t *testing.T) {
	f := newHandoverFixture(t)
	sess := f.sessionWithTurns(t, 1)
	res, err := f.svc.Request(context.Background(), &dto.HandoverRequest{SessionId: sess.ID, Message: "help"})
	require.NoError(t, err)

	got, err := f.svc.Ticket(context.Background(), res.TicketId)
	require.NoError(t, err)
	assert.Equal(t, "help", got.Message)
	assert.Len(t, got.Transcript, 2)

	_, err = f.svc.Ticket(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrTicketNotFound)
	_, err = f.svc.Ticket(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

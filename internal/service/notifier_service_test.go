package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"bank-support-be/internal/pkg/mailer"
	"bank-support-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu          sync.Mutex
	err         error
	escalations []mailer.EscalationAlert
	handovers   []mailer.HandoverAlert
	to          []string
}

func (m *fakeMailer) SendEscalationAlert(to string, alert mailer.EscalationAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.escalations = append(m.escalations, alert)
	return nil
}

func (m *fakeMailer) SendHandoverRequest(to string, alert mailer.HandoverAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.handovers = append(m.handovers, alert)
	return nil
}

type webhookRecorder struct {
	mu     sync.Mutex
	status int
	bodies []events.BaseEvent
}

func (w *webhookRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		evt, err := events.Unmarshal(raw)
		assert.NoError(t, err)

		w.mu.Lock()
		w.bodies = append(w.bodies, evt)
		status := w.status
		w.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		rw.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func handoverEvent() events.Event {
	return events.New(events.HandoverRequested, map[string]interface{}{
		"ticketId":  "t-1",
		"sessionId": "s-1",
		"name":      "Ama",
		"phone":     "0241234567",
		"message":   "card blocked",
	})
}

func TestNotifierSendsEmailAndWebhook(t *testing.T) {
	m := &fakeMailer{}
	hook := &webhookRecorder{}
	srv := hook.server(t)
	n := NewNotifierService(m, NotifierOptions{HandoverEmail: "ops@bank.test", WebhookURL: srv.URL}, nil)

	require.NoError(t, n.Handle(context.Background(), handoverEvent()))

	require.Len(t, m.handovers, 1)
	assert.Equal(t, "t-1", m.handovers[0].TicketID)
	assert.Equal(t, "0241234567", m.handovers[0].Phone)
	assert.Equal(t, []string{"ops@bank.test"}, m.to)

	require.Len(t, hook.bodies, 1)
	assert.Equal(t, events.HandoverRequested, hook.bodies[0].EventType())
	assert.Equal(t, "s-1", events.String(hook.bodies[0], "sessionId"))
}

func TestNotifierEscalationUsesEscalationAddress(t *testing.T) {
	m := &fakeMailer{}
	n := NewNotifierService(m, NotifierOptions{EscalationEmail: "esc@bank.test", HandoverEmail: "ops@bank.test"}, nil)

	evt := events.New(events.EscalationSuggested, map[string]interface{}{"sessionId": "s-2", "lastUserMessage": "joke"})
	require.NoError(t, n.Handle(context.Background(), evt))

	require.Len(t, m.escalations, 1)
	assert.Equal(t, "joke", m.escalations[0].LastUserMessage)
	assert.Equal(t, []string{"esc@bank.test"}, m.to)
}

func TestNotifierPartialFailureIsNotAnError(t *testing.T) {
	m := &fakeMailer{}
	hook := &webhookRecorder{status: http.StatusBadGateway}
	srv := hook.server(t)
	n := NewNotifierService(m, NotifierOptions{HandoverEmail: "ops@bank.test", WebhookURL: srv.URL}, nil)

	assert.NoError(t, n.Handle(context.Background(), handoverEvent()))
	assert.Len(t, m.handovers, 1)
}

func TestNotifierAllChannelsFailed(t *testing.T) {
	m := &fakeMailer{err: errors.New("smtp down")}
	hook := &webhookRecorder{status: http.StatusInternalServerError}
	srv := hook.server(t)
	n := NewNotifierService(m, NotifierOptions{HandoverEmail: "ops@bank.test", WebhookURL: srv.URL}, nil)

	err := n.Handle(context.Background(), handoverEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Contains(t, err.Error(), "500")
}

func TestNotifierSkipsUnconfiguredSMTP(t *testing.T) {
	m := &fakeMailer{err: mailer.ErrNotConfigured}
	n := NewNotifierService(m, NotifierOptions{HandoverEmail: "ops@bank.test"}, nil)
	assert.NoError(t, n.Handle(context.Background(), handoverEvent()))

	hook := &webhookRecorder{status: http.StatusInternalServerError}
	srv := hook.server(t)
	n = NewNotifierService(m, NotifierOptions{HandoverEmail: "ops@bank.test", WebhookURL: srv.URL}, nil)
	assert.Error(t, n.Handle(context.Background(), handoverEvent()))
}

func TestNotifierIgnoresOtherEvents(t *testing.T) {
	m := &fakeMailer{}
	hook := &webhookRecorder{}
	srv := hook.server(t)
	n := NewNotifierService(m, NotifierOptions{HandoverEmail: "ops@bank.test", WebhookURL: srv.URL}, nil)

	assert.NoError(t, n.Handle(context.Background(), events.New(events.KBChanged, nil)))
	assert.Empty(t, hook.bodies)
	assert.Empty(t, m.to)
}

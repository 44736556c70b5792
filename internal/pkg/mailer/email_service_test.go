package mailer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"bank-support-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	sent []*gomail.Message
	err  error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.sent = append(r.sent, m...)
	return r.err
}

func newTestService(d sender) *emailService {
	return &emailService{dialer: d, senderEmail: "bot@bank.test", senderName: "Bank Support", log: logger.NewNopLogger()}
}

func TestSendHandoverRequestEscapesUserContent(t *testing.T) {
	rec := &recordingSender{}
	svc := newTestService(rec)

	err := svc.SendHandoverRequest("agents@bank.test", HandoverAlert{
		TicketID:  "t-1",
		SessionID: "s-1",
		Name:      "<script>x</script>",
		At:        time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)

	assert.Equal(t, []string{"[Chatbot] Handover request t-1"}, rec.sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = rec.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "(n/a)")
}

func TestSendEscalationAlertPropagatesErrors(t *testing.T) {
	boom := errors.New("smtp down")
	svc := newTestService(&recordingSender{err: boom})

	err := svc.SendEscalationAlert("ops@bank.test", EscalationAlert{SessionID: "s-1", At: time.Now()})
	assert.ErrorIs(t, err, boom)
}

func TestUnconfiguredService(t *testing.T) {
	svc := NewEmailService("", 587, "", "", "", "", nil)
	err := svc.SendEscalationAlert("ops@bank.test", EscalationAlert{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

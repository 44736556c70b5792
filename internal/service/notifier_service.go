package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/pkg/mailer"
	"bank-support-be/pkg/events"
	pktNats "bank-support-be/pkg/nats"
)

const (
	notifierDurable = "notifier"
	webhookTimeout  = 5 * time.Second
)

type NotifierOptions struct {
	EscalationEmail string
	HandoverEmail   string
	WebhookURL      string
}

// NotifierService turns escalation and handover events into operator
// alerts by email and webhook.
type NotifierService struct {
	mailer mailer.IEmailService
	opts   NotifierOptions
	client *http.Client
	logger logger.ILogger
}

func NewNotifierService(m mailer.IEmailService, opts NotifierOptions, log logger.ILogger) *NotifierService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &NotifierService{
		mailer: m,
		opts:   opts,
		client: &http.Client{Timeout: webhookTimeout},
		logger: log,
	}
}

// Start consumes alert events from NATS with a durable consumer.
func (s *NotifierService) Start(ctx context.Context, sub *pktNats.Subscriber) error {
	for _, eventType := range []string{events.EscalationSuggested, events.HandoverRequested} {
		durable := fmt.Sprintf("%s-%s", notifierDurable, eventType)
		if err := sub.Subscribe(ctx, pktNats.Subject(eventType), durable, s.Handle); err != nil {
			return err
		}
	}
	s.logger.Info("NOTIFIER", "Notifier listening for alert events", nil)
	return nil
}

// Handle delivers one event. It fails only when every configured channel
// failed, so a webhook outage does not resend emails on redelivery.
func (s *NotifierService) Handle(ctx context.Context, event events.Event) error {
	var to string
	var send func() error

	switch event.EventType() {
	case events.EscalationSuggested:
		to = s.opts.EscalationEmail
		alert := mailer.EscalationAlert{
			SessionID:       events.String(event, "sessionId"),
			LastUserMessage: events.String(event, "lastUserMessage"),
			At:              event.Timestamp(),
		}
		send = func() error { return s.mailer.SendEscalationAlert(to, alert) }
	case events.HandoverRequested:
		to = s.opts.HandoverEmail
		alert := mailer.HandoverAlert{
			TicketID:  events.String(event, "ticketId"),
			SessionID: events.String(event, "sessionId"),
			Name:      events.String(event, "name"),
			Phone:     events.String(event, "phone"),
			Message:   events.String(event, "message"),
			At:        event.Timestamp(),
		}
		send = func() error { return s.mailer.SendHandoverRequest(to, alert) }
	default:
		return nil
	}

	attempted, failed := 0, 0
	var errs []error

	if to != "" && s.mailer != nil {
		switch err := send(); {
		case errors.Is(err, mailer.ErrNotConfigured):
			// SMTP off; the webhook alone decides the outcome.
		case err != nil:
			attempted++
			failed++
			errs = append(errs, err)
		default:
			attempted++
		}
	}

	if s.opts.WebhookURL != "" {
		attempted++
		if err := s.postWebhook(ctx, event); err != nil {
			failed++
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Warn("NOTIFIER", "Alert delivery failed", map[string]interface{}{
			"type": event.EventType(), "error": errors.Join(errs...).Error(),
		})
	}
	if attempted > 0 && failed == attempted {
		return errors.Join(errs...)
	}
	return nil
}

func (s *NotifierService) postWebhook(ctx context.Context, event events.Event) error {
	body, err := events.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

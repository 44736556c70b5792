package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/events"

	"github.com/google/uuid"
)

const (
	TicketStatusQueued = "queued"
	transcriptSize     = 6
)

type IHandoverService interface {
	Request(ctx context.Context, req *dto.HandoverRequest) (*dto.HandoverResponse, error)
	Ticket(ctx context.Context, id string) (*dto.HandoverTicketResponse, error)
}

type handoverService struct {
	sessions  contract.SessionRepository
	tickets   contract.HandoverTicketRepository // nil without a database
	analytics IAnalyticsService
	events    IEventPublisher
	logger    logger.ILogger
}

func NewHandoverService(
	sessions contract.SessionRepository,
	tickets contract.HandoverTicketRepository,
	analytics IAnalyticsService,
	eventPublisher IEventPublisher,
	log logger.ILogger,
) IHandoverService {
	if eventPublisher == nil {
		eventPublisher = nopPublisher{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &handoverService{
		sessions:  sessions,
		tickets:   tickets,
		analytics: analytics,
		events:    eventPublisher,
		logger:    log,
	}
}

// ValidatePhone accepts an empty value or a Ghana number: +233/233 followed
// by nine digits, or 0 followed by nine digits. Separators are ignored.
func ValidatePhone(phone string) error {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	raw := b.String()
	if raw == "" {
		return nil
	}
	digits := strings.ReplaceAll(raw, "+", "")

	ok := false
	switch {
	case strings.HasPrefix(raw, "+233"), strings.HasPrefix(raw, "233"):
		ok = len(digits) == 12
	case strings.HasPrefix(raw, "0"):
		ok = len(digits) == 10
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return nil
}

func (s *handoverService) Request(ctx context.Context, req *dto.HandoverRequest) (*dto.HandoverResponse, error) {
	sess, ok := s.sessions.Get(req.SessionId)
	if !ok {
		return nil, ErrSessionNotFound
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	message := strings.TrimSpace(req.Message)
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}

	ticket := &entity.HandoverTicket{
		Id:         uuid.New(),
		SessionId:  uuid.MustParse(sess.ID),
		Name:       name,
		Phone:      phone,
		Message:    message,
		Status:     TicketStatusQueued,
		Transcript: transcript(sess.Recent(transcriptSize)),
		CreatedAt:  time.Now(),
	}

	if s.tickets != nil {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return nil, fmt.Errorf("persist handover ticket: %w", err)
		}
	}
	s.analytics.RecordHandoverCompleted(ctx)

	s.logger.Info("HANDOVER", "Handover requested", map[string]interface{}{
		"ticket_id":  ticket.Id.String(),
		"session_id": sess.ID,
		"has_phone":  phone != "",
		"history":    len(ticket.Transcript),
	})

	evt := events.New(events.HandoverRequested, map[string]interface{}{
		"ticketId":   ticket.Id.String(),
		"sessionId":  sess.ID,
		"name":       name,
		"phone":      phone,
		"message":    message,
		"transcript": transcriptPayload(ticket.Transcript),
	})
	if err := s.events.Publish(ctx, evt); err != nil {
		// The ticket exists; agents can still pick it up from storage.
		s.logger.Warn("HANDOVER", "Failed to publish handover event", map[string]interface{}{
			"ticket_id": ticket.Id.String(), "error": err.Error(),
		})
	}

	return &dto.HandoverResponse{TicketId: ticket.Id.String(), Status: ticket.Status}, nil
}

// Ticket loads a persisted handover ticket for the agent console.
func (s *handoverService) Ticket(ctx context.Context, id string) (*dto.HandoverTicketResponse, error) {
	if s.tickets == nil {
		return nil, ErrFeatureDisabled
	}
	ticketID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTicketNotFound
	}
	t, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTicketNotFound
	}

	lines := make([]dto.TranscriptLineResponse, len(t.Transcript))
	for i, l := range t.Transcript {
		lines[i] = dto.TranscriptLineResponse{Role: l.Role, Content: l.Content, Timestamp: l.Timestamp}
	}
	return &dto.HandoverTicketResponse{
		TicketId:   t.Id.String(),
		SessionId:  t.SessionId.String(),
		Name:       t.Name,
		Phone:      t.Phone,
		Message:    t.Message,
		Status:     t.Status,
		Transcript: lines,
		CreatedAt:  t.CreatedAt,
	}, nil
}

func transcript(msgs []dialog.Message) []entity.TranscriptLine {
	out := make([]entity.TranscriptLine, len(msgs))
	for i, m := range msgs {
		out[i] = entity.TranscriptLine{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
	}
	return out
}

func transcriptPayload(lines []entity.TranscriptLine) []interface{} {
	out := make([]interface{}, len(lines))
	for i, l := range lines {
		out[i] = map[string]interface{}{"role": l.Role, "content": l.Content, "timestamp": l.Timestamp}
	}
	return out
}

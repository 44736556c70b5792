package service

import (
	"context"
	"sync/atomic"
	"time"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/pkg/assistant"
	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/events"
	"bank-support-be/pkg/kb"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultProviderTimeout = 20 * time.Second

type IChatService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	SendMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	History(ctx context.Context, sessionID string) (*dto.HistoryResponse, error)
	EndSession(ctx context.Context, sessionID string) error
	Metrics(ctx context.Context) (*dto.MetricsResponse, error)
	ProviderName() string
}

type ChatOptions struct {
	ProviderTimeout    time.Duration
	NotifyOnEscalation bool
}

type chatService struct {
	sessions  contract.SessionRepository
	store     *kb.Store
	matcher   *kb.Matcher
	assembler *assistant.Assembler
	tracker   *dialog.Tracker
	analytics IAnalyticsService
	events    IEventPublisher
	opts      ChatOptions
	logger    logger.ILogger
	tracer    trace.Tracer

	totalTurns    atomic.Int64
	lastLatencyMs atomic.Int64
}

func NewChatService(
	sessions contract.SessionRepository,
	store *kb.Store,
	matcher *kb.Matcher,
	assembler *assistant.Assembler,
	tracker *dialog.Tracker,
	analytics IAnalyticsService,
	eventPublisher IEventPublisher,
	opts ChatOptions,
	log logger.ILogger,
) IChatService {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if eventPublisher == nil {
		eventPublisher = nopPublisher{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &chatService{
		sessions:  sessions,
		store:     store,
		matcher:   matcher,
		assembler: assembler,
		tracker:   tracker,
		analytics: analytics,
		events:    eventPublisher,
		opts:      opts,
		logger:    log,
		tracer:    otel.Tracer("bank-support-be/chat"),
	}
}

func (s *chatService) ProviderName() string {
	return s.assembler.ProviderName()
}

func (s *chatService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	persona := ""
	if req != nil {
		persona = req.Persona
	}
	sess := dialog.NewSession(persona)
	s.sessions.Save(sess)
	s.analytics.RecordConversation(ctx)

	s.logger.Info("CHAT", "Session created", map[string]interface{}{"session_id": sess.ID, "persona": sess.Persona})
	return &dto.CreateSessionResponse{SessionId: sess.ID}, nil
}

// SendMessage runs one chat turn. Provider failures never surface as errors;
// they turn into the apology-and-handover reply.
func (s *chatService) SendMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.SendMessage",
		trace.WithAttributes(attribute.String("chat.session_id", req.SessionId)))
	defer span.End()

	sess, ok := s.sessions.Get(req.SessionId)
	if !ok {
		span.SetStatus(codes.Error, "session not found")
		return nil, ErrSessionNotFound
	}

	end := sess.BeginTurn()
	defer end()

	guard := assistant.GuardUserInput(req.Message)
	if _, err := s.tracker.RecordUser(sess, guard.Text); err != nil {
		return nil, err
	}
	s.analytics.RecordMessage(ctx)
	if guard.Flagged {
		s.logger.Warn("CHAT", "Sensitive content redacted", map[string]interface{}{
			"session_id": sess.ID, "reasons": guard.Reasons,
		})
	}

	retrieval := s.matcher.Retrieve(s.store.Snapshot(), req.Message)
	s.analytics.RecordKBQuery(ctx, retrieval.Found())
	span.SetAttributes(
		attribute.String("kb.method", string(retrieval.Method)),
		attribute.StringSlice("kb.ids", retrieval.IDs()),
	)

	genCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	start := time.Now()
	draft, genErr := s.assembler.Generate(genCtx, sess.History(), retrieval.Matches)
	latency := time.Since(start)
	cancel()

	s.totalTurns.Add(1)
	s.lastLatencyMs.Store(latency.Milliseconds())
	s.analytics.RecordLatency(ctx, latency)
	s.analytics.RecordProvider(ctx, s.assembler.ProviderName())

	var (
		reply    string
		decision dialog.Decision
	)
	if genErr != nil {
		span.RecordError(genErr)
		s.analytics.RecordProviderFailure(ctx)
		s.logger.Error("CHAT", "Provider failed, replying with fail-safe", map[string]interface{}{
			"session_id": sess.ID, "provider": s.assembler.ProviderName(), "error": genErr.Error(),
			"latency_ms": latency.Milliseconds(),
		})
		reply, decision = s.tracker.FailSafe(sess)
	} else {
		decision = s.tracker.Evaluate(sess, dialog.Turn{
			UserText:  req.Message,
			Reply:     draft.Text,
			KBFound:   retrieval.Found(),
			Uncertain: draft.Uncertain,
		})
		reply = s.assembler.Finalize(draft.Text, req.Message, guard, decision.Append)
	}

	if _, err := s.tracker.RecordAssistant(sess, reply, decision); err != nil {
		return nil, err
	}
	s.sessions.Save(sess)

	span.SetAttributes(attribute.Bool("chat.suggest_handover", decision.SuggestHandover))
	s.logger.Info("CHAT", "Turn completed", map[string]interface{}{
		"session_id":       sess.ID,
		"match_method":     retrieval.Method,
		"kb_ids":           retrieval.IDs(),
		"suggest_handover": decision.SuggestHandover,
		"state":            decision.State,
		"latency_ms":       latency.Milliseconds(),
	})

	if decision.SuggestHandover {
		s.analytics.RecordHandoverSuggested(ctx)
		if s.opts.NotifyOnEscalation {
			s.publishEscalation(ctx, sess, decision)
		}
	}

	return &dto.ChatResponse{
		Reply:           reply,
		SuggestHandover: decision.SuggestHandover,
		Matches:         toMatchDTOs(retrieval.Matches),
		MatchMethod:     string(retrieval.Method),
		State:           string(sess.State()),
	}, nil
}

func (s *chatService) publishEscalation(ctx context.Context, sess *dialog.Session, d dialog.Decision) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	evt := events.New(events.EscalationSuggested, map[string]interface{}{
		"sessionId":       sess.ID,
		"lastUserMessage": sess.LastUserMessage(),
		"state":           string(d.State),
		"streak":          sess.UnresolvedStreak(),
	})
	if err := s.events.Publish(pubCtx, evt); err != nil {
		s.logger.Warn("CHAT", "Failed to publish escalation event", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
	}
}

func (s *chatService) History(ctx context.Context, sessionID string) (*dto.HistoryResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	history := sess.History()
	messages := make([]dto.MessageResponse, len(history))
	for i, m := range history {
		messages[i] = toMessageDTO(m)
	}
	return &dto.HistoryResponse{
		SessionId:        sess.ID,
		CreatedAt:        sess.CreatedAt,
		Persona:          sess.Persona,
		State:            string(sess.State()),
		UnresolvedStreak: sess.UnresolvedStreak(),
		Messages:         messages,
	}, nil
}

func (s *chatService) EndSession(ctx context.Context, sessionID string) error {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	s.sessions.Delete(sessionID)
	s.logger.Info("CHAT", "Session ended", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *chatService) Metrics(ctx context.Context) (*dto.MetricsResponse, error) {
	snap := s.store.Snapshot()
	return &dto.MetricsResponse{
		TotalTurns:     s.totalTurns.Load(),
		LastLatencyMs:  s.lastLatencyMs.Load(),
		ActiveSessions: s.sessions.Count(),
		KBVersion:      snap.Version(),
		KBEntries:      snap.Len(),
		Provider:       s.assembler.ProviderName(),
		Analytics:      s.analytics.Snapshot(ctx),
	}, nil
}

func toMatchDTOs(matches []kb.MatchResult) []dto.KBMatch {
	out := make([]dto.KBMatch, len(matches))
	for i, m := range matches {
		out[i] = dto.KBMatch{Id: m.Entry.ID, Category: m.Entry.Category, Score: m.Score}
	}
	return out
}

func toMessageDTO(m dialog.Message) dto.MessageResponse {
	return dto.MessageResponse{
		Id:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

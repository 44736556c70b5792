package service

import (
	"context"
	"encoding/json"
	"time"

	"bank-support-be/internal/pkg/logger"
	"bank-support-be/pkg/events"
	pktNats "bank-support-be/pkg/nats"
)

const agentConsoleDurable = "agent-console"

// AlertDelivery pushes a frame to every connected agent. The websocket hub
// implements it.
type AlertDelivery interface {
	Broadcast(data []byte)
}

// AgentFrame is what the agent console receives for each bus event.
type AgentFrame struct {
	Type       string                 `json:"type"`
	Event      string                 `json:"event"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

type AgentConsoleService struct {
	delivery AlertDelivery
	logger   logger.ILogger
}

func NewAgentConsoleService(delivery AlertDelivery, log logger.ILogger) *AgentConsoleService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AgentConsoleService{delivery: delivery, logger: log}
}

// Start listens to every chatbot event on NATS. The durable consumer is
// shared, so each event reaches one instance and the hub fans it out.
func (s *AgentConsoleService) Start(ctx context.Context, sub *pktNats.Subscriber) error {
	if err := sub.Subscribe(ctx, pktNats.SubjectPrefix+">", agentConsoleDurable, s.Handle); err != nil {
		return err
	}
	s.logger.Info("AGENT_CONSOLE", "Agent console listening to chatbot events", nil)
	return nil
}

func (s *AgentConsoleService) Handle(ctx context.Context, event events.Event) error {
	if s.delivery == nil {
		return nil
	}
	data, err := json.Marshal(AgentFrame{
		Type:       "event",
		Event:      event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		// Unencodable payload; redelivery would fail the same way.
		s.logger.Error("AGENT_CONSOLE", "Failed to encode event", map[string]interface{}{
			"type": event.EventType(), "error": err.Error(),
		})
		return nil
	}
	s.delivery.Broadcast(data)
	return nil
}

package dialog

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type State string

const (
	StateStable           State = "STABLE"
	StateUnresolved       State = "UNRESOLVED"
	StateHandoverOffered  State = "HANDOVER_OFFERED"
	StateHandoverAccepted State = "HANDOVER_ACCEPTED"
)

// NoOffer marks a session in which the handover question was never asked.
const NoOffer = -1

const DefaultPersona = "financial_care_pro"

var ErrEmptyMessage = errors.New("message content is empty")

// Message is immutable once appended to a session.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// Session is the per-conversation dialog record. Field access goes through
// methods; turn serializes whole request flows for the same session.
type Session struct {
	ID        string
	CreatedAt int64
	Persona   string

	mu               sync.RWMutex
	history          []Message
	unresolvedStreak int
	lastOfferTurn    int
	state            State

	turn sync.Mutex
}

func NewSession(persona string) *Session {
	if persona == "" {
		persona = DefaultPersona
	}
	return &Session{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UnixMilli(),
		Persona:       persona,
		lastOfferTurn: NoOffer,
		state:         StateStable,
	}
}

// BeginTurn blocks until no other turn is running for this session and
// returns the function that ends the turn.
func (s *Session) BeginTurn() (end func()) {
	s.turn.Lock()
	return s.turn.Unlock
}

func (s *Session) append(role Role, content string) (Message, int, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, 0, ErrEmptyMessage
	}
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
	return m, len(s.history) - 1, nil
}

// History returns a copy of the ordered message history.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Recent returns up to n of the latest messages.
func (s *Session) Recent(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

func (s *Session) UnresolvedStreak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unresolvedStreak
}

func (s *Session) LastOfferTurn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOfferTurn
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastUserMessage returns the content of the most recent user message.
func (s *Session) LastUserMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == RoleUser {
			return s.history[i].Content
		}
	}
	return ""
}

// lastAssistantLocked returns the index of the latest assistant message or -1.
func (s *Session) lastAssistantLocked() int {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == RoleAssistant {
			return i
		}
	}
	return -1
}

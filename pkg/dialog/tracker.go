package dialog

import (
	"strings"

	"bank-support-be/internal/pkg/logger"
)

const (
	DefaultStreakThreshold = 2
	DefaultOfferWindow     = 6
)

// Turn is everything the tracker needs to classify one exchange.
type Turn struct {
	UserText string
	Reply    string
	KBFound  bool
	// Uncertain, when set by the provider, replaces text sniffing for
	// uncertain language.
	Uncertain *bool
}

// Decision is the tracker's verdict for one turn.
type Decision struct {
	Unresolved      bool
	SuggestHandover bool
	// Append is the escalation text to add at the end of the reply, if any.
	Append string
	// Offered is true when the final reply carries the handover question.
	Offered bool
	State   State
}

type Tracker struct {
	threshold int
	window    int
	logger    logger.ILogger
}

func NewTracker(threshold, window int, log logger.ILogger) *Tracker {
	if threshold <= 0 {
		threshold = DefaultStreakThreshold
	}
	if window <= 0 {
		window = DefaultOfferWindow
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Tracker{threshold: threshold, window: window, logger: log}
}

// RecordUser appends the (already redacted) user message to the session.
func (t *Tracker) RecordUser(s *Session, content string) (Message, error) {
	m, _, err := s.append(RoleUser, content)
	return m, err
}

// Evaluate classifies the turn, updates the streak and decides on
// escalation. It must run after RecordUser and before RecordAssistant.
func (t *Tracker) Evaluate(s *Session, turn Turn) Decision {
	offerInReply := ContainsOffer(turn.Reply)

	uncertain := IsUncertain(turn.Reply)
	if turn.Uncertain != nil {
		uncertain = *turn.Uncertain
	}
	// Greetings and thanks are never unresolved, even when the provider
	// answers them with its canned introduction.
	unresolved := !offerInReply && !IsTrivial(turn.UserText) &&
		(IsGenericFallback(turn.Reply) || uncertain || !turn.KBFound)

	s.mu.Lock()
	defer s.mu.Unlock()

	if unresolved {
		s.unresolvedStreak++
	} else {
		s.unresolvedStreak = 0
	}

	accepted := IsAffirmative(turn.UserText) && s.lastAssistantOfferedLocked()
	explicit := IsHumanRequest(turn.UserText)
	streakHit := s.unresolvedStreak >= t.threshold

	d := Decision{
		Unresolved:      unresolved,
		SuggestHandover: streakHit || explicit || accepted,
	}

	switch {
	case accepted:
		d.Append = AckAccepted
		t.transitionLocked(s, StateHandoverAccepted)
	case d.SuggestHandover:
		if streakHit {
			t.transitionLocked(s, StateUnresolved)
		}
		switch {
		case offerInReply:
			d.Offered = true
		case s.recentlyOfferedLocked(t.window):
			d.Append = AckPending
		default:
			d.Append = OfferSentence
			d.Offered = true
		}
		t.transitionLocked(s, StateHandoverOffered)
	default:
		if offerInReply {
			d.Offered = true
			t.transitionLocked(s, StateHandoverOffered)
		} else {
			t.transitionLocked(s, StateStable)
		}
	}
	d.State = s.state

	t.logger.Debug("DIALOG", "Turn evaluated", map[string]interface{}{
		"session_id":       s.ID,
		"unresolved":       unresolved,
		"streak":           s.unresolvedStreak,
		"explicit_request": explicit,
		"accepted":         accepted,
		"suggest_handover": d.SuggestHandover,
		"state":            string(d.State),
	})
	return d
}

// FailSafe builds the reply for a failed provider call. The turn is not
// classified and escalation is always proposed.
func (t *Tracker) FailSafe(s *Session) (string, Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Decision{SuggestHandover: true}
	reply := Apology + " "
	if s.recentlyOfferedLocked(t.window) {
		reply += AckPending
	} else {
		reply += OfferSentence
		d.Offered = true
	}
	t.transitionLocked(s, StateHandoverOffered)
	d.State = s.state

	t.logger.Warn("DIALOG", "Provider failure, fail-safe reply issued", map[string]interface{}{
		"session_id": s.ID,
	})
	return reply, d
}

// RecordAssistant appends the final reply and remembers where the handover
// question was asked.
func (t *Tracker) RecordAssistant(s *Session, content string, d Decision) (Message, error) {
	m, idx, err := s.append(RoleAssistant, content)
	if err != nil {
		return m, err
	}
	if d.Offered || ContainsOffer(content) {
		s.mu.Lock()
		s.lastOfferTurn = idx
		s.mu.Unlock()
	}
	return m, nil
}

func (t *Tracker) transitionLocked(s *Session, next State) {
	if s.state == next {
		return
	}
	t.logger.Info("DIALOG", "[STATE] Transition", map[string]interface{}{
		"session_id": s.ID,
		"from":       string(s.state),
		"to":         string(next),
	})
	s.state = next
}

// lastAssistantOfferedLocked reports whether the latest assistant turn asked
// the handover question or acknowledged a pending one. Used to recognise an
// affirmative reply as acceptance.
func (s *Session) lastAssistantOfferedLocked() bool {
	i := s.lastAssistantLocked()
	if i < 0 {
		return false
	}
	c := s.history[i].Content
	return i == s.lastOfferTurn || ContainsOffer(c) || strings.Contains(c, AckPending)
}

// recentlyOfferedLocked reports whether the offer question itself was asked
// within the last window messages. Acknowledgements do not extend the window.
func (s *Session) recentlyOfferedLocked(window int) bool {
	if i := s.lastAssistantLocked(); i >= 0 && ContainsOffer(s.history[i].Content) {
		return true
	}
	return s.lastOfferTurn != NoOffer && s.lastOfferTurn >= len(s.history)-window
}

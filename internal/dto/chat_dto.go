package dto

type CreateSessionRequest struct {
	Persona string `json:"persona" validate:"omitempty,max=64"`
}

type CreateSessionResponse struct {
	SessionId string `json:"sessionId"`
}

type ChatRequest struct {
	SessionId string `json:"sessionId" validate:"required,uuid"`
	Message   string `json:"message" validate:"required,min=1,max=2000"`
}

type KBMatch struct {
	Id       string `json:"id"`
	Category string `json:"category"`
	Score    int    `json:"score"`
}

type ChatResponse struct {
	Reply           string    `json:"reply"`
	SuggestHandover bool      `json:"suggestHandover"`
	Matches         []KBMatch `json:"matches"`
	MatchMethod     string    `json:"matchMethod"`
	State           string    `json:"state"`
}

type MessageResponse struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type HistoryResponse struct {
	SessionId        string            `json:"sessionId"`
	CreatedAt        int64             `json:"createdAt"`
	Persona          string            `json:"persona"`
	State            string            `json:"state"`
	UnresolvedStreak int               `json:"unresolvedStreak"`
	Messages         []MessageResponse `json:"messages"`
}

// ChatFrame is one WebSocket message in either direction.
type ChatFrame struct {
	SessionId       string `json:"sessionId,omitempty"`
	Message         string `json:"message,omitempty"`
	Reply           string `json:"reply,omitempty"`
	SuggestHandover bool   `json:"suggestHandover,omitempty"`
	Error           string `json:"error,omitempty"`
}

package dto

import "time"

type HandoverRequest struct {
	SessionId string `json:"sessionId" validate:"required,uuid"`
	Name      string `json:"name" validate:"max=128"`
	Phone     string `json:"phone" validate:"max=32"`
	Message   string `json:"message" validate:"max=2000"`
}

type HandoverResponse struct {
	TicketId string `json:"ticketId"`
	Status   string `json:"status"`
}

type TranscriptLineResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type HandoverTicketResponse struct {
	TicketId   string                   `json:"ticketId"`
	SessionId  string                   `json:"sessionId"`
	Name       string                   `json:"name"`
	Phone      string                   `json:"phone"`
	Message    string                   `json:"message"`
	Status     string                   `json:"status"`
	Transcript []TranscriptLineResponse `json:"transcript"`
	CreatedAt  time.Time                `json:"createdAt"`
}

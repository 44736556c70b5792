package entity

import (
	"time"

	"github.com/google/uuid"
)

type KBEntry struct {
	Id        string
	Category  string
	Patterns  []string
	Answer    string
	Position  int
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type HandoverTicket struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	Name       string
	Phone      string
	Message    string
	Status     string
	Transcript []TranscriptLine
	CreatedAt  time.Time
}

type TranscriptLine struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

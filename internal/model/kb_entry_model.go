package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KBEntry struct {
	Id        string                      `gorm:"type:varchar(128);primaryKey"`
	Category  string                      `gorm:"type:varchar(128);not null;index"`
	Patterns  datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	Answer    string                      `gorm:"type:text;not null"`
	Position  int                         `gorm:"not null;default:0;index"` // KB order for exact matching
	Embedding *pgvector.Vector            `gorm:"type:vector(768)"`         // nomic-embed-text dimensions
	CreatedAt time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt time.Time                   `gorm:"autoUpdateTime"`
}

func (KBEntry) TableName() string {
	return "kb_entries"
}

type HandoverTicket struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Name       string         `gorm:"type:varchar(255)"`
	Phone      string         `gorm:"type:varchar(32)"`
	Message    string         `gorm:"type:text"`
	Status     string         `gorm:"type:varchar(32);not null;default:'queued'"`
	Transcript datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (HandoverTicket) TableName() string {
	return "handover_tickets"
}

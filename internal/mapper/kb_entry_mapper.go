package mapper

import (
	"encoding/json"

	"bank-support-be/internal/entity"
	"bank-support-be/internal/model"
	"bank-support-be/pkg/kb"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KBEntryMapper struct{}

func NewKBEntryMapper() *KBEntryMapper {
	return &KBEntryMapper{}
}

func (m *KBEntryMapper) ToEntity(e *model.KBEntry) *entity.KBEntry {
	if e == nil {
		return nil
	}

	var embedding []float32
	if e.Embedding != nil {
		embedding = e.Embedding.Slice()
	}

	return &entity.KBEntry{
		Id:        e.Id,
		Category:  e.Category,
		Patterns:  append([]string(nil), e.Patterns...),
		Answer:    e.Answer,
		Position:  e.Position,
		Embedding: embedding,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (m *KBEntryMapper) ToModel(e *entity.KBEntry) *model.KBEntry {
	if e == nil {
		return nil
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	return &model.KBEntry{
		Id:        e.Id,
		Category:  e.Category,
		Patterns:  datatypes.JSONSlice[string](append([]string(nil), e.Patterns...)),
		Answer:    e.Answer,
		Position:  e.Position,
		Embedding: embedding,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (m *KBEntryMapper) ToEntities(models []*model.KBEntry) []*entity.KBEntry {
	entities := make([]*entity.KBEntry, len(models))
	for i, e := range models {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

// ToSource converts a stored row into the loader format the live KB compiles.
func (m *KBEntryMapper) ToSource(e *entity.KBEntry) kb.Source {
	return kb.Source{
		ID:       e.Id,
		Product:  e.Category,
		Patterns: append([]string(nil), e.Patterns...),
		Answer:   e.Answer,
	}
}

func (m *KBEntryMapper) ToSources(entries []*entity.KBEntry) []kb.Source {
	out := make([]kb.Source, len(entries))
	for i, e := range entries {
		out[i] = m.ToSource(e)
	}
	return out
}

func (m *KBEntryMapper) FromSource(src kb.Source, position int) *entity.KBEntry {
	return &entity.KBEntry{
		Id:       src.ID,
		Category: src.Product,
		Patterns: append([]string(nil), src.Patterns...),
		Answer:   src.Answer,
		Position: position,
	}
}

type HandoverTicketMapper struct{}

func NewHandoverTicketMapper() *HandoverTicketMapper {
	return &HandoverTicketMapper{}
}

func (m *HandoverTicketMapper) ToModel(e *entity.HandoverTicket) (*model.HandoverTicket, error) {
	transcript, err := json.Marshal(e.Transcript)
	if err != nil {
		return nil, err
	}
	return &model.HandoverTicket{
		Id:         e.Id,
		SessionId:  e.SessionId,
		Name:       e.Name,
		Phone:      e.Phone,
		Message:    e.Message,
		Status:     e.Status,
		Transcript: datatypes.JSON(transcript),
		CreatedAt:  e.CreatedAt,
	}, nil
}

func (m *HandoverTicketMapper) ToEntity(e *model.HandoverTicket) (*entity.HandoverTicket, error) {
	var transcript []entity.TranscriptLine
	if len(e.Transcript) > 0 {
		if err := json.Unmarshal(e.Transcript, &transcript); err != nil {
			return nil, err
		}
	}
	return &entity.HandoverTicket{
		Id:         e.Id,
		SessionId:  e.SessionId,
		Name:       e.Name,
		Phone:      e.Phone,
		Message:    e.Message,
		Status:     e.Status,
		Transcript: transcript,
		CreatedAt:  e.CreatedAt,
	}, nil
}

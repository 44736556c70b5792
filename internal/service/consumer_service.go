package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bank-support-be/internal/dto"
	"bank-support-be/internal/entity"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/internal/repository/specification"
	"bank-support-be/pkg/embedding"
	"bank-support-be/pkg/kb"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService keeps kb_entries.embedding in sync with entry content.
type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	repo              contract.KBEntryRepository
	embeddingProvider embedding.Provider
	logger            logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	repo contract.KBEntryRepository,
	embeddingProvider embedding.Provider,
	log logger.ILogger,
) IConsumerService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		repo:              repo,
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedKBEntryMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("EMBEDDING", "Failed to unmarshal job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // retrying cannot fix a bad payload
		return
	}

	e, err := cs.repo.FindOne(ctx, specification.ByID{ID: payload.EntryId})
	if err != nil {
		cs.logger.Error("EMBEDDING", "Failed to load entry", map[string]interface{}{"entry_id": payload.EntryId, "error": err.Error()})
		msg.Nack()
		return
	}
	if e == nil {
		// Deleted before the job ran.
		msg.Ack()
		return
	}

	vec, err := cs.embeddingProvider.Embed(ctx, EmbeddingDocument(e))
	if err != nil {
		cs.logger.Error("EMBEDDING", "Embedding provider failed", map[string]interface{}{"entry_id": e.Id, "error": err.Error()})
		msg.Nack()
		return
	}
	if len(vec) != embedding.Dimensions {
		cs.logger.Error("EMBEDDING", "Unexpected embedding size", map[string]interface{}{
			"entry_id": e.Id, "got": len(vec), "want": embedding.Dimensions,
		})
		msg.Ack()
		return
	}

	if err := cs.repo.UpdateEmbedding(ctx, e.Id, vec); err != nil {
		cs.logger.Error("EMBEDDING", "Failed to store embedding", map[string]interface{}{"entry_id": e.Id, "error": err.Error()})
		msg.Nack()
		return
	}

	cs.logger.Info("EMBEDDING", "Entry embedded", map[string]interface{}{"entry_id": e.Id})
	msg.Ack()
}

// EmbeddingDocument is the text embedded for an entry: its category, the
// bare words of its rules and its answer.
func EmbeddingDocument(e *entity.KBEntry) string {
	terms := make([]string, 0, len(e.Patterns))
	for _, p := range e.Patterns {
		r, err := kb.CompileRule(p)
		if err != nil {
			continue
		}
		if t := strings.Join(r.Terms(), " "); t != "" {
			terms = append(terms, t)
		}
	}
	return fmt.Sprintf("Category: %s\nQuestions: %s\nAnswer: %s", e.Category, strings.Join(terms, "; "), e.Answer)
}

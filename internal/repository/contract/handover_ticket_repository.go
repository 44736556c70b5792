package contract

import (
	"context"

	"bank-support-be/internal/entity"

	"github.com/google/uuid"
)

type HandoverTicketRepository interface {
	Create(ctx context.Context, t *entity.HandoverTicket) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.HandoverTicket, error)
}

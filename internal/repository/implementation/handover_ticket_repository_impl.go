package implementation

import (
	"context"
	"errors"

	"bank-support-be/internal/entity"
	"bank-support-be/internal/mapper"
	"bank-support-be/internal/model"
	"bank-support-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HandoverTicketRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.HandoverTicketMapper
}

func NewHandoverTicketRepository(db *gorm.DB) contract.HandoverTicketRepository {
	return &HandoverTicketRepositoryImpl{
		db:     db,
		mapper: mapper.NewHandoverTicketMapper(),
	}
}

func (r *HandoverTicketRepositoryImpl) Create(ctx context.Context, t *entity.HandoverTicket) error {
	m, err := r.mapper.ToModel(t)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	t.CreatedAt = m.CreatedAt
	return nil
}

func (r *HandoverTicketRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.HandoverTicket, error) {
	var m model.HandoverTicket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

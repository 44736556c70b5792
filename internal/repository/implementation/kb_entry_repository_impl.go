package implementation

import (
	"context"
	"errors"

	"bank-support-be/internal/entity"
	"bank-support-be/internal/mapper"
	"bank-support-be/internal/model"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KBEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KBEntryMapper
}

func NewKBEntryRepository(db *gorm.DB) contract.KBEntryRepository {
	return &KBEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewKBEntryMapper(),
	}
}

func (r *KBEntryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *KBEntryRepositoryImpl) Create(ctx context.Context, e *entity.KBEntry) error {
	m := r.mapper.ToModel(e)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*e = *r.mapper.ToEntity(m)
	return nil
}

// Update writes the editable columns only so a stored embedding survives
// until the sync job replaces it.
func (r *KBEntryRepositoryImpl) Update(ctx context.Context, e *entity.KBEntry) error {
	m := r.mapper.ToModel(e)
	res := r.db.WithContext(ctx).
		Model(&model.KBEntry{Id: e.Id}).
		Select("category", "patterns", "answer").
		Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *KBEntryRepositoryImpl) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.KBEntry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceAll swaps the table contents inside one transaction.
func (r *KBEntryRepositoryImpl) ReplaceAll(ctx context.Context, entries []*entity.KBEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.KBEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		models := make([]*model.KBEntry, len(entries))
		for i, e := range entries {
			models[i] = r.mapper.ToModel(e)
		}
		return tx.CreateInBatches(models, 100).Error
	})
}

func (r *KBEntryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KBEntry, error) {
	var m model.KBEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *KBEntryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KBEntry, error) {
	var models []*model.KBEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *KBEntryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.KBEntry{}).Count(&count).Error
	return count, err
}

func (r *KBEntryRepositoryImpl) NextPosition(ctx context.Context) (int, error) {
	var maxPos *int
	err := r.db.WithContext(ctx).Model(&model.KBEntry{}).Select("MAX(position)").Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	if maxPos == nil {
		return 0, nil
	}
	return *maxPos + 1, nil
}

func (r *KBEntryRepositoryImpl) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	return r.db.WithContext(ctx).
		Model(&model.KBEntry{}).
		Where("id = ?", id).
		Update("embedding", vec).Error
}

// SearchSimilarWithScore ranks entries by cosine similarity. pgvector's <=>
// is cosine distance, so similarity = 1 - distance.
func (r *KBEntryRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredKBEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.KBEntry
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("kb_entries").
		Select("kb_entries.*, 1 - (embedding <=> ?) as similarity", queryVector)
	err := r.applySpecifications(query, specification.HasEmbedding{}).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredKBEntry, len(results))
	for i := range results {
		scored[i] = &contract.ScoredKBEntry{
			Entry:      r.mapper.ToEntity(&results[i].KBEntry),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}

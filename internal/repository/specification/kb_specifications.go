package specification

import "gorm.io/gorm"

type HasEmbedding struct{}

func (HasEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NOT NULL")
}

// MissingEmbedding selects entries the sync job has not reached yet.
type MissingEmbedding struct{}

func (MissingEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NULL")
}

// KBOrder is the order the live KB is built in.
func KBOrder() Specification {
	return OrderBy{Field: "position"}
}

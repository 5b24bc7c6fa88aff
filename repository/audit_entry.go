package repository

import (
	"gorm.io/gorm"

	"github.com/antartrc-jpg/gatebook/entity"
)

type AuditEntryRepository struct {
	db *gorm.DB
}

func NewAuditEntryRepository(db *gorm.DB) *AuditEntryRepository {
	return &AuditEntryRepository{db: db}
}

// Append writes one audit row. The trail is append-only; there are
// deliberately no update or delete methods.
func (r *AuditEntryRepository) Append(entry *entity.AuditEntry) error {
	return r.db.Create(entry).Error
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/antartrc-jpg/gatebook/entity"
	"github.com/antartrc-jpg/gatebook/infra"
)

type Repository struct {
	FileObjectRepo *FileObjectRepository
	AuditEntryRepo *AuditEntryRepository

	db *gorm.DB
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = NewRepository(infra.Postgres.DB)
	return repository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		FileObjectRepo: NewFileObjectRepository(db),
		AuditEntryRepo: NewAuditEntryRepository(db),
		db:             db,
	}
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return &Repository{
		FileObjectRepo: NewFileObjectRepository(tx),
		AuditEntryRepo: NewAuditEntryRepository(tx),
		db:             tx,
	}
}

// The *WithAudit methods write the mutation and its audit entry in one
// transaction, so the trail never diverges from the data.

func (r *Repository) CreateWithAudit(ctx context.Context, object *entity.FileObject, audit *entity.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTransaction(tx)
		if err := txRepo.FileObjectRepo.Create(object); err != nil {
			return err
		}
		return txRepo.AuditEntryRepo.Append(audit)
	})
}

func (r *Repository) UpsertWithAudit(ctx context.Context, object *entity.FileObject, audit *entity.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTransaction(tx)
		if err := txRepo.FileObjectRepo.Upsert(object); err != nil {
			return err
		}
		return txRepo.AuditEntryRepo.Append(audit)
	})
}

func (r *Repository) SetRetainedWithAudit(ctx context.Context, id uuid.UUID, retained bool, audit *entity.AuditEntry) (bool, error) {
	var matched bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTransaction(tx)
		rows, err := txRepo.FileObjectRepo.UpdateRetained(id, retained)
		if err != nil {
			return err
		}
		matched = rows > 0
		return txRepo.AuditEntryRepo.Append(audit)
	})
	return matched, err
}

func (r *Repository) DeleteWithAudit(ctx context.Context, id uuid.UUID, audit *entity.AuditEntry) (bool, error) {
	var matched bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTransaction(tx)
		rows, err := txRepo.FileObjectRepo.Delete(id)
		if err != nil {
			return err
		}
		matched = rows > 0
		if !matched {
			// Deleting an absent row is a no-op and leaves no audit entry.
			return nil
		}
		return txRepo.AuditEntryRepo.Append(audit)
	})
	return matched, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.FileObject, error) {
	return r.WithTransaction(r.db.WithContext(ctx)).FileObjectRepo.FindByID(id)
}

func (r *Repository) FindRecent(ctx context.Context, limit int) ([]entity.FileObject, error) {
	return r.WithTransaction(r.db.WithContext(ctx)).FileObjectRepo.FindRecent(limit)
}

func (r *Repository) FindExpired(ctx context.Context, cutoff time.Time) ([]entity.FileObject, error) {
	return r.WithTransaction(r.db.WithContext(ctx)).FileObjectRepo.FindExpired(cutoff)
}

package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/antartrc-jpg/gatebook/entity"
)

type FileObjectRepository struct {
	db *gorm.DB
}

func NewFileObjectRepository(db *gorm.DB) *FileObjectRepository {
	return &FileObjectRepository{db: db}
}

func (r *FileObjectRepository) Create(object *entity.FileObject) error {
	return r.db.Create(object).Error
}

func (r *FileObjectRepository) FindByID(id uuid.UUID) (*entity.FileObject, error) {
	var object entity.FileObject
	err := r.db.Where("id = ?", id).First(&object).Error
	if err != nil {
		return nil, err
	}
	return &object, nil
}

// Upsert inserts the row or, on id conflict, overwrites every mutable field
// except captured_at, which keeps its previous value when the new one is
// absent. A known capture timestamp is never clobbered by null.
func (r *FileObjectRepository) Upsert(object *entity.FileObject) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"filename":     object.Filename,
			"size_bytes":   object.SizeBytes,
			"content_type": object.ContentType,
			"storage_key":  object.StorageKey,
			"content_hash": object.ContentHash,
			"received_at":  object.ReceivedAt,
			"retained":     object.Retained,
			"state":        object.State,
			"captured_at":  gorm.Expr("COALESCE(?, file_object.captured_at)", object.CapturedAt),
		}),
	}).Create(object).Error
}

// UpdateRetained flips the retention flag, reporting how many rows matched.
func (r *FileObjectRepository) UpdateRetained(id uuid.UUID, retained bool) (int64, error) {
	res := r.db.Model(&entity.FileObject{}).
		Where("id = ?", id).
		Update("retained", retained)
	return res.RowsAffected, res.Error
}

func (r *FileObjectRepository) Delete(id uuid.UUID) (int64, error) {
	res := r.db.Delete(&entity.FileObject{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *FileObjectRepository) FindRecent(limit int) ([]entity.FileObject, error) {
	var objects []entity.FileObject
	err := r.db.
		Order("received_at DESC NULLS LAST").
		Limit(limit).
		Find(&objects).Error
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// FindExpired returns the sweep candidates: non-retained rows whose
// received_at lies before the cutoff.
func (r *FileObjectRepository) FindExpired(cutoff time.Time) ([]entity.FileObject, error) {
	var objects []entity.FileObject
	err := r.db.
		Where("retained = ? AND received_at < ?", false, cutoff).
		Find(&objects).Error
	if err != nil {
		return nil, err
	}
	return objects, nil
}

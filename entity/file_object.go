package entity

import (
	"time"

	"github.com/google/uuid"
)

// FileState tracks where a file object sits in its lifecycle.
type FileState string

const (
	// FileStateProvisional means a presigned URL was issued but the upload
	// has not been confirmed yet.
	FileStateProvisional FileState = "PROVISIONAL"
	// FileStateFinalized means confirm succeeded and the stored metadata
	// reflects the object actually present in the blob store.
	FileStateFinalized FileState = "FINALIZED"
)

type FileObject struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Filename    string     `json:"filename" gorm:"type:varchar(255);not null"`
	SizeBytes   *int64     `json:"size_bytes"`
	ContentType *string    `json:"content_type" gorm:"type:varchar(255)"`
	StorageKey  string     `json:"storage_key" gorm:"type:varchar(1024);not null;uniqueIndex"`
	ContentHash *string    `json:"content_hash" gorm:"type:varchar(64)"`
	ReceivedAt  *time.Time `json:"received_at" gorm:"index"`
	CapturedAt  *time.Time `json:"captured_at"`
	Retained    bool       `json:"retained" gorm:"not null;default:false;index"`
	State       FileState  `json:"state" gorm:"type:varchar(16);not null;default:'PROVISIONAL'"`
}

func (FileObject) TableName() string {
	return "file_object"
}

// Finalized reports whether the object has passed confirm.
func (f *FileObject) Finalized() bool {
	return f.State == FileStateFinalized
}

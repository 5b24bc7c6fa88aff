package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditAction enumerates the mutating operations recorded in the audit trail.
type AuditAction string

const (
	AuditActionPresign   AuditAction = "files.presign"
	AuditActionConfirm   AuditAction = "files.confirm"
	AuditActionDelete    AuditAction = "files.delete"
	AuditActionRetention AuditAction = "files.retention"
	AuditActionCleanup   AuditAction = "files.cleanup"
)

// AuditEntry is append-only: rows are never updated or deleted. EntityID is a
// weak reference and survives deletion of the file object it points at.
type AuditEntry struct {
	ID         int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Action     AuditAction    `json:"action" gorm:"type:varchar(64);not null"`
	EntityType string         `json:"entity_type" gorm:"type:varchar(64);not null"`
	EntityID   uuid.UUID      `json:"entity_id" gorm:"type:uuid"`
	Details    datatypes.JSON `json:"details" gorm:"type:jsonb"`
	Timestamp  time.Time      `json:"timestamp" gorm:"not null;autoCreateTime"`
}

func (AuditEntry) TableName() string {
	return "audit_entry"
}

const AuditEntityFileObject = "file_object"

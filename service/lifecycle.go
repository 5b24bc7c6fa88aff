// Package service implements the file object lifecycle: presign, confirm,
// retention flag changes, deletion, reads and the retention sweeper. The
// state machine per object is NONE -> PROVISIONAL -> FINALIZED -> deleted.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/antartrc-jpg/gatebook/entity"
	"github.com/antartrc-jpg/gatebook/exifx"
	"github.com/antartrc-jpg/gatebook/infra"
	"github.com/antartrc-jpg/gatebook/infra/produce"
	"github.com/antartrc-jpg/gatebook/utils"
	"github.com/antartrc-jpg/gatebook/validator"
)

// BlobStore is the slice of the blob store adapter the lifecycle needs.
// *infra.MinioClient satisfies it.
type BlobStore interface {
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	StatObject(ctx context.Context, key string) (*infra.ObjectStat, error)
	FirstKeyWithPrefix(ctx context.Context, prefix string) (string, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, key string) infra.DeleteOutcome
}

// MetadataStore is the slice of the repository the lifecycle needs.
// *repository.Repository satisfies it.
type MetadataStore interface {
	CreateWithAudit(ctx context.Context, object *entity.FileObject, audit *entity.AuditEntry) error
	UpsertWithAudit(ctx context.Context, object *entity.FileObject, audit *entity.AuditEntry) error
	SetRetainedWithAudit(ctx context.Context, id uuid.UUID, retained bool, audit *entity.AuditEntry) (bool, error)
	DeleteWithAudit(ctx context.Context, id uuid.UUID, audit *entity.AuditEntry) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.FileObject, error)
	FindRecent(ctx context.Context, limit int) ([]entity.FileObject, error)
	FindExpired(ctx context.Context, cutoff time.Time) ([]entity.FileObject, error)
}

// AuditPublisher fans audit events out to the message broker. May be nil.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, msg produce.AuditEventMessage) error
}

// Options carries the policy knobs the lifecycle reads from configuration.
type Options struct {
	Policy         *validator.Policy
	KeyPrefix      string
	PresignExpires time.Duration
	VerifySHA256   bool
}

type FileLifecycleService struct {
	opts   Options
	blob   BlobStore
	store  MetadataStore
	pub    AuditPublisher
	logger *infra.LoggerClient

	// injectable for tests
	now   func() time.Time
	newID func() uuid.UUID

	tracer         trace.Tracer
	confirmCounter metric.Int64Counter
}

func NewFileLifecycleService(opts Options, blob BlobStore, store MetadataStore, pub AuditPublisher, logger *infra.LoggerClient) *FileLifecycleService {
	meter := otel.Meter("gatebook/service")
	confirmCounter, _ := meter.Int64Counter("gatebook.files.confirmed",
		metric.WithDescription("Number of successfully confirmed file uploads"))

	return &FileLifecycleService{
		opts:           opts,
		blob:           blob,
		store:          store,
		pub:            pub,
		logger:         logger,
		now:            time.Now,
		newID:          uuid.New,
		tracer:         otel.Tracer("gatebook/service"),
		confirmCounter: confirmCounter,
	}
}

type PresignResult struct {
	ID         uuid.UUID
	StorageKey string
	UploadURL  string
}

type ConfirmResult struct {
	SizeBytes   int64
	ContentType string
}

// FileView is the read-only projection handed to the HTTP layer. DownloadURL
// is generated fresh per read and carries its own expiry.
type FileView struct {
	ID              uuid.UUID  `json:"id"`
	Filename        string     `json:"filename"`
	SizeBytes       *int64     `json:"size_bytes,omitempty"`
	ContentType     *string    `json:"content_type,omitempty"`
	StorageKey      string     `json:"storage_key"`
	ReceivedAt      *time.Time `json:"received_at,omitempty"`
	CapturedAt      *time.Time `json:"captured_at,omitempty"`
	Retained        bool       `json:"retained"`
	State           string     `json:"state"`
	EligibleForKeep bool       `json:"eligible_for_keep"`
	DownloadURL     string     `json:"download_url,omitempty"`
}

// Presign validates the declared metadata, creates a provisional record and
// returns a time-boxed upload URL. Each call mints an independent id and
// storage key, so concurrent calls need no coordination.
func (s *FileLifecycleService) Presign(ctx context.Context, filename, contentType string, sizeBytes int64) (*PresignResult, error) {
	safe, err := s.opts.Policy.ValidateIntent(filename, contentType, sizeBytes)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	key := fmt.Sprintf("%s/%s/%s", s.opts.KeyPrefix, id, safe)

	uploadURL, err := s.blob.PresignPut(ctx, key, contentType, s.opts.PresignExpires)
	if err != nil {
		return nil, storageErr("presign", err)
	}

	now := s.now()
	object := &entity.FileObject{
		ID:         id,
		Filename:   safe,
		StorageKey: key,
		ReceivedAt: &now,
		Retained:   false,
		State:      entity.FileStateProvisional,
	}
	audit := s.auditEntry(entity.AuditActionPresign, id, map[string]interface{}{
		"filename":     safe,
		"content_type": contentType,
	})

	if err := s.store.CreateWithAudit(ctx, object, audit); err != nil {
		return nil, storageErr("presign insert", err)
	}
	s.publishAudit(ctx, audit)

	return &PresignResult{ID: id, StorageKey: key, UploadURL: uploadURL}, nil
}

// Confirm finalizes an upload against the blob store's authoritative
// metadata. Idempotent: a second confirm of the same id converges to the same
// stored state except received_at, which advances.
func (s *FileLifecycleService) Confirm(ctx context.Context, id uuid.UUID, sha256Hex string) (*ConfirmResult, error) {
	ctx, span := s.tracer.Start(ctx, "FileLifecycle.Confirm")
	defer span.End()

	if err := validator.ValidateHashFormat(sha256Hex); err != nil {
		return nil, err
	}

	key, err := s.resolveStorageKey(ctx, id)
	if err != nil {
		return nil, err
	}

	stat, err := s.blob.StatObject(ctx, key)
	if err != nil {
		if errors.Is(err, infra.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("stat", err)
	}

	contentType := s.resolveContentType(ctx, key, stat.ContentType)

	if err := s.opts.Policy.ValidateConfirmed(contentType, stat.Size); err != nil {
		// The object in the store does not match policy: best-effort cleanup
		// of the mis-uploaded blob, then fail without persisting.
		outcome := s.blob.RemoveObject(ctx, key)
		s.logger.WarningWithContextf(ctx, "[Lifecycle] Rejected uploaded object %q (%s), blob cleanup: %s", key, err, outcome)
		return nil, err
	}

	var contentHash *string
	if s.opts.VerifySHA256 && sha256Hex != "" {
		if err := s.verifyContentHash(ctx, key, sha256Hex); err != nil {
			return nil, err
		}
		lower := strings.ToLower(sha256Hex)
		contentHash = &lower
	}

	capturedAt := s.extractCaptureTime(ctx, key, contentType)

	parts := strings.SplitN(key, "/", 3)
	filename := parts[len(parts)-1]

	now := s.now()
	object := &entity.FileObject{
		ID:          id,
		Filename:    filename,
		SizeBytes:   &stat.Size,
		ContentType: &contentType,
		StorageKey:  key,
		ContentHash: contentHash,
		ReceivedAt:  &now,
		CapturedAt:  capturedAt,
		Retained:    false,
		State:       entity.FileStateFinalized,
	}
	details := map[string]interface{}{
		"size":         stat.Size,
		"content_type": contentType,
	}
	if capturedAt != nil {
		details["captured_at"] = capturedAt.Format(time.RFC3339)
	}
	audit := s.auditEntry(entity.AuditActionConfirm, id, details)

	if err := s.store.UpsertWithAudit(ctx, object, audit); err != nil {
		return nil, storageErr("confirm upsert", err)
	}
	s.publishAudit(ctx, audit)
	s.confirmCounter.Add(ctx, 1)

	return &ConfirmResult{SizeBytes: stat.Size, ContentType: contentType}, nil
}

// resolveStorageKey prefers the provisional record's key and falls back to a
// prefix listing, which covers retries where the presign insert never
// happened. The lexicographically first match wins.
func (s *FileLifecycleService) resolveStorageKey(ctx context.Context, id uuid.UUID) (string, error) {
	record, err := s.store.FindByID(ctx, id)
	if err == nil {
		return record.StorageKey, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", storageErr("lookup", err)
	}

	prefix := fmt.Sprintf("%s/%s/", s.opts.KeyPrefix, id)
	key, err := s.blob.FirstKeyWithPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, infra.ErrObjectNotFound) {
			return "", ErrNotFound
		}
		return "", storageErr("list", err)
	}
	return key, nil
}

// resolveContentType trusts the blob store's reported type, falling back to
// content sniffing only when the store reports nothing useful.
func (s *FileLifecycleService) resolveContentType(ctx context.Context, key, reported string) string {
	if reported != "" && reported != "application/octet-stream" {
		return reported
	}

	rc, err := s.blob.GetObject(ctx, key)
	if err != nil {
		if reported == "" {
			return "application/octet-stream"
		}
		return reported
	}
	defer rc.Close()

	head := make([]byte, 3072)
	n, _ := io.ReadFull(rc, head)
	if n == 0 {
		if reported == "" {
			return "application/octet-stream"
		}
		return reported
	}
	sniffed := mimetype.Detect(head[:n]).String()
	// mimetype appends parameters like "; charset=utf-8"
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = strings.TrimSpace(sniffed[:i])
	}
	if sniffed != "" {
		return sniffed
	}
	return "application/octet-stream"
}

func (s *FileLifecycleService) verifyContentHash(ctx context.Context, key, declared string) error {
	rc, err := s.blob.GetObject(ctx, key)
	if err != nil {
		return storageErr("hash read", err)
	}
	defer rc.Close()

	digest, err := utils.HashReaderSHA256(rc)
	if err != nil {
		return storageErr("hash compute", err)
	}
	if !strings.EqualFold(digest, declared) {
		outcome := s.blob.RemoveObject(ctx, key)
		s.logger.WarningWithContextf(ctx, "[Lifecycle] Hash mismatch for %q, blob cleanup: %s", key, outcome)
		return &validator.ValidationError{Kind: validator.KindHash, Message: "sha256 mismatch"}
	}
	return nil
}

// extractCaptureTime is content-type-gated and never fatal: only photographic
// formats are attempted and any failure is treated as "no timestamp".
func (s *FileLifecycleService) extractCaptureTime(ctx context.Context, key, contentType string) *time.Time {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
	default:
		return nil
	}

	rc, err := s.blob.GetObject(ctx, key)
	if err != nil {
		return nil
	}
	defer rc.Close()

	return exifx.ExtractCaptureTime(rc, contentType)
}

// SetRetention flips the retention flag. Only finalized or provisional rows
// that actually exist can be flagged; a missing id is ErrNotFound.
func (s *FileLifecycleService) SetRetention(ctx context.Context, id uuid.UUID, retained bool) error {
	audit := s.auditEntry(entity.AuditActionRetention, id, map[string]interface{}{
		"retained": retained,
	})
	matched, err := s.store.SetRetainedWithAudit(ctx, id, retained, audit)
	if err != nil {
		return storageErr("retention update", err)
	}
	if !matched {
		return ErrNotFound
	}
	s.publishAudit(ctx, audit)
	return nil
}

// Delete removes the blob best-effort and the metadata row unconditionally.
// Deleting an absent id is a no-op, reported via the bool return.
func (s *FileLifecycleService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storageErr("lookup", err)
	}

	outcome := s.blob.RemoveObject(ctx, record.StorageKey)
	if outcome == infra.DeleteOutcomeTransientFailure {
		// The row is removed regardless, so a dangling blob never blocks
		// metadata cleanup.
		s.logger.WarningWithContextf(ctx, "[Lifecycle] Blob delete failed for %q, removing metadata anyway", record.StorageKey)
	}

	audit := s.auditEntry(entity.AuditActionDelete, id, map[string]interface{}{
		"storage_key":  record.StorageKey,
		"blob_outcome": outcome.String(),
	})
	if _, err := s.store.DeleteWithAudit(ctx, id, audit); err != nil {
		return false, storageErr("delete", err)
	}
	s.publishAudit(ctx, audit)
	return true, nil
}

// Get returns a projection of one file object with a freshly signed download
// URL.
func (s *FileLifecycleService) Get(ctx context.Context, id uuid.UUID) (*FileView, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("lookup", err)
	}
	view := s.toView(ctx, record)
	return &view, nil
}

// ListRecent returns up to limit file objects ordered by received_at
// descending, nulls last, each with a fresh download URL.
func (s *FileLifecycleService) ListRecent(ctx context.Context, limit int) ([]FileView, error) {
	records, err := s.store.FindRecent(ctx, limit)
	if err != nil {
		return nil, storageErr("list recent", err)
	}
	views := make([]FileView, 0, len(records))
	for i := range records {
		views = append(views, s.toView(ctx, &records[i]))
	}
	return views, nil
}

func (s *FileLifecycleService) toView(ctx context.Context, record *entity.FileObject) FileView {
	view := FileView{
		ID:          record.ID,
		Filename:    record.Filename,
		SizeBytes:   record.SizeBytes,
		ContentType: record.ContentType,
		StorageKey:  record.StorageKey,
		ReceivedAt:  record.ReceivedAt,
		CapturedAt:  record.CapturedAt,
		Retained:    record.Retained,
		State:       string(record.State),
	}
	// Display hint only; the sweeper's deletion predicate is independent.
	if !record.Retained && record.ReceivedAt != nil {
		view.EligibleForKeep = record.ReceivedAt.After(s.now().Add(-24 * time.Hour))
	}
	if record.StorageKey != "" {
		url, err := s.blob.PresignGet(ctx, record.StorageKey, s.opts.PresignExpires)
		if err != nil {
			s.logger.WarningWithContextf(ctx, "[Lifecycle] Failed to presign download URL for %q: %v", record.StorageKey, err)
		} else {
			view.DownloadURL = url
		}
	}
	return view
}

func (s *FileLifecycleService) auditEntry(action entity.AuditAction, id uuid.UUID, details map[string]interface{}) *entity.AuditEntry {
	payload, _ := json.Marshal(details)
	return &entity.AuditEntry{
		Action:     action,
		EntityType: entity.AuditEntityFileObject,
		EntityID:   id,
		Details:    datatypes.JSON(payload),
		Timestamp:  s.now(),
	}
}

func (s *FileLifecycleService) publishAudit(ctx context.Context, audit *entity.AuditEntry) {
	if s.pub == nil {
		return
	}
	msg := produce.AuditEventMessage{
		Action:     string(audit.Action),
		EntityType: audit.EntityType,
		EntityID:   audit.EntityID.String(),
		Details:    json.RawMessage(audit.Details),
	}
	if err := s.pub.PublishAuditEvent(ctx, msg); err != nil {
		s.logger.WarningWithContextf(ctx, "[Lifecycle] Audit fan-out failed for %s: %v", audit.Action, err)
	}
}

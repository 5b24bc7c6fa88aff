package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/antartrc-jpg/gatebook/entity"
	"github.com/antartrc-jpg/gatebook/infra"
)

// RetentionSweeper enforces the retention policy: expired, non-retained file
// objects are deleted from the blob store (best effort) and the metadata
// store. Each candidate is its own unit of work; one failure never aborts the
// batch.
type RetentionSweeper struct {
	blob   BlobStore
	store  MetadataStore
	logger *infra.LoggerClient

	now func() time.Time

	tracer       trace.Tracer
	sweepCounter metric.Int64Counter
}

func NewRetentionSweeper(blob BlobStore, store MetadataStore, logger *infra.LoggerClient) *RetentionSweeper {
	meter := otel.Meter("gatebook/sweeper")
	sweepCounter, _ := meter.Int64Counter("gatebook.files.swept",
		metric.WithDescription("Number of file objects removed by the retention sweeper"))

	return &RetentionSweeper{
		blob:         blob,
		store:        store,
		logger:       logger,
		now:          time.Now,
		tracer:       otel.Tracer("gatebook/sweeper"),
		sweepCounter: sweepCounter,
	}
}

// Sweep runs one pass. Candidates are either the single given id or every row
// with retained = false and received_at older than the threshold. Returns the
// number of candidates whose metadata row was removed.
func (s *RetentionSweeper) Sweep(ctx context.Context, threshold time.Duration, onlyID *uuid.UUID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "RetentionSweeper.Sweep")
	defer span.End()

	var candidates []entity.FileObject
	if onlyID != nil {
		record, err := s.store.FindByID(ctx, *onlyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil
			}
			return 0, storageErr("sweep lookup", err)
		}
		candidates = []entity.FileObject{*record}
	} else {
		cutoff := s.now().Add(-threshold)
		var err error
		candidates, err = s.store.FindExpired(ctx, cutoff)
		if err != nil {
			return 0, storageErr("sweep query", err)
		}
	}

	deleted := 0
	for i := range candidates {
		if s.sweepOne(ctx, &candidates[i]) {
			deleted++
		}
	}
	s.sweepCounter.Add(ctx, int64(deleted))
	return deleted, nil
}

func (s *RetentionSweeper) sweepOne(ctx context.Context, record *entity.FileObject) bool {
	// Blob first, metadata second: a crash in between leaks a storage object
	// but never leaves a row pointing at nothing.
	outcome := s.blob.RemoveObject(ctx, record.StorageKey)
	if outcome == infra.DeleteOutcomeTransientFailure {
		s.logger.WarningWithContextf(ctx, "[Sweeper] Blob delete failed for %q, removing metadata anyway", record.StorageKey)
	}

	details, _ := json.Marshal(map[string]interface{}{
		"storage_key":  record.StorageKey,
		"blob_outcome": outcome.String(),
		"by":           "sweeper",
	})
	audit := &entity.AuditEntry{
		Action:     entity.AuditActionCleanup,
		EntityType: entity.AuditEntityFileObject,
		EntityID:   record.ID,
		Details:    datatypes.JSON(details),
		Timestamp:  s.now(),
	}

	if _, err := s.store.DeleteWithAudit(ctx, record.ID, audit); err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Sweeper] Failed to delete metadata for %s, skipping", record.ID)
		return false
	}
	return true
}

// Run sweeps immediately and then on every interval tick until the context is
// cancelled.
func (s *RetentionSweeper) Run(ctx context.Context, threshold, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := s.Sweep(ctx, threshold, nil)
		if err != nil {
			s.logger.ErrorWithContextf(ctx, err, "[Sweeper] Sweep pass failed")
		} else {
			s.logger.InfoWithContextf(ctx, "[Sweeper] Cleaned %d file(s)", n)
		}

		select {
		case <-ctx.Done():
			s.logger.InfoWithContextf(ctx, "[Sweeper] Shutting down")
			return
		case <-ticker.C:
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antartrc-jpg/gatebook/entity"
)

func newTestSweeper(blob *fakeBlobStore, store *fakeMetadataStore) *RetentionSweeper {
	sw := NewRetentionSweeper(blob, store, testLogger())
	sw.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return sw
}

func seedFile(store *fakeMetadataStore, blob *fakeBlobStore, age time.Duration, retained bool) uuid.UUID {
	id := uuid.New()
	receivedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC).Add(-age)
	key := "t-default/" + id.String() + "/seed.bin"
	store.files[id] = &entity.FileObject{
		ID:         id,
		Filename:   "seed.bin",
		StorageKey: key,
		ReceivedAt: &receivedAt,
		Retained:   retained,
		State:      entity.FileStateFinalized,
	}
	if blob != nil {
		blob.put(key, []byte{0xde, 0xad}, "application/octet-stream")
	}
	return id
}

func TestSweepDeletesExpiredNonRetained(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	expired := seedFile(store, blob, 48*time.Hour, false)
	fresh := seedFile(store, blob, time.Hour, false)

	n, err := sw.Sweep(context.Background(), 24*time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.FindByID(context.Background(), expired)
	require.Error(t, err)
	_, err = store.FindByID(context.Background(), fresh)
	require.NoError(t, err)

	assert.Equal(t, []entity.AuditAction{entity.AuditActionCleanup}, store.auditActions())
}

func TestSweepZeroThresholdDeletesAllNonRetained(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	seedFile(store, blob, time.Minute, false)
	seedFile(store, blob, time.Hour, false)
	kept := seedFile(store, blob, 1000*time.Hour, true)

	n, err := sw.Sweep(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.FindByID(context.Background(), kept)
	require.NoError(t, err, "retained rows survive regardless of age")
}

func TestSweepRetainedSurvives(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	kept := seedFile(store, blob, 30*24*time.Hour, true)

	n, err := sw.Sweep(context.Background(), 24*time.Hour, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	record, err := store.FindByID(context.Background(), kept)
	require.NoError(t, err)
	assert.True(t, blob.has(record.StorageKey))
}

func TestSweepRetentionToggleChangesCandidacy(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)
	svc := newTestLifecycle(blob, store, false)

	id := seedFile(store, blob, 48*time.Hour, false)
	require.NoError(t, svc.SetRetention(context.Background(), id, true))

	n, err := sw.Sweep(context.Background(), 24*time.Hour, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "flagging retention removes the row from sweep candidacy")

	require.NoError(t, svc.SetRetention(context.Background(), id, false))
	n, err = sw.Sweep(context.Background(), 24*time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSweepOnlyID(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	target := seedFile(store, blob, time.Minute, false)
	other := seedFile(store, blob, 100*time.Hour, false)

	n, err := sw.Sweep(context.Background(), 24*time.Hour, &target)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "an explicit id bypasses the age predicate")

	_, err = store.FindByID(context.Background(), target)
	require.Error(t, err)
	_, err = store.FindByID(context.Background(), other)
	require.NoError(t, err, "other expired rows are left for the regular pass")
}

func TestSweepOnlyIDAbsentIsNoop(t *testing.T) {
	sw := newTestSweeper(newFakeBlobStore(), newFakeMetadataStore())

	missing := uuid.New()
	n, err := sw.Sweep(context.Background(), 24*time.Hour, &missing)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepBlobFailureStillRemovesMetadata(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	id := seedFile(store, blob, 48*time.Hour, false)
	store.mu.Lock()
	key := store.files[id].StorageKey
	store.mu.Unlock()
	blob.failing[key] = true

	n, err := sw.Sweep(context.Background(), 24*time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.FindByID(context.Background(), id)
	require.Error(t, err, "metadata goes even when the blob delete fails")
}

func TestSweepMetadataFailureIsolatedPerItem(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	broken := seedFile(store, blob, 48*time.Hour, false)
	ok := seedFile(store, blob, 48*time.Hour, false)
	store.deleteErrs[broken] = errors.New("deadlock detected")

	n, err := sw.Sweep(context.Background(), 24*time.Hour, nil)
	require.NoError(t, err, "a failing candidate does not abort the pass")
	assert.Equal(t, 1, n)

	_, err = store.FindByID(context.Background(), broken)
	require.NoError(t, err, "the failed row is retried on the next pass")
	_, err = store.FindByID(context.Background(), ok)
	require.Error(t, err)
}

func TestRunSweepsOnceThenStopsOnCancel(t *testing.T) {
	blob := newFakeBlobStore()
	store := newFakeMetadataStore()
	sw := newTestSweeper(blob, store)

	seedFile(store, blob, 48*time.Hour, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sw.Run(ctx, 24*time.Hour, time.Hour)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	// The immediate pass ran before the shutdown check.
	assert.Empty(t, store.files)
}

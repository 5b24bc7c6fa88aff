package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/antartrc-jpg/gatebook/config"
	"github.com/antartrc-jpg/gatebook/entity"
	"github.com/antartrc-jpg/gatebook/infra"
)

// fakeBlobStore is an in-memory stand-in for the MinIO adapter.
type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	failing  map[string]bool // keys whose RemoveObject fails transiently
	removed  []string
	presigns int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		failing: make(map[string]bool),
	}
}

func (f *fakeBlobStore) put(key string, data []byte, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
}

func (f *fakeBlobStore) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigns++
	return "http://blob.local/put/" + key, nil
}

func (f *fakeBlobStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://blob.local/get/" + key, nil
}

func (f *fakeBlobStore) StatObject(_ context.Context, key string) (*infra.ObjectStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, infra.ErrObjectNotFound
	}
	return &infra.ObjectStat{Size: int64(len(data)), ContentType: f.types[key]}, nil
}

func (f *fakeBlobStore) FirstKeyWithPrefix(_ context.Context, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", infra.ErrObjectNotFound
	}
	sort.Strings(keys)
	return keys[0], nil
}

func (f *fakeBlobStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, infra.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) RemoveObject(_ context.Context, key string) infra.DeleteOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[key] {
		return infra.DeleteOutcomeTransientFailure
	}
	if _, ok := f.objects[key]; !ok {
		return infra.DeleteOutcomeNotFoundRemote
	}
	delete(f.objects, key)
	delete(f.types, key)
	f.removed = append(f.removed, key)
	return infra.DeleteOutcomeDeleted
}

func (f *fakeBlobStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// fakeMetadataStore replicates the repository's transactional semantics in
// memory, including the captured_at COALESCE on upsert.
type fakeMetadataStore struct {
	mu         sync.Mutex
	files      map[uuid.UUID]*entity.FileObject
	audits     []*entity.AuditEntry
	deleteErrs map[uuid.UUID]error
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		files:      make(map[uuid.UUID]*entity.FileObject),
		deleteErrs: make(map[uuid.UUID]error),
	}
}

func cloneFile(o *entity.FileObject) *entity.FileObject {
	c := *o
	return &c
}

func (f *fakeMetadataStore) CreateWithAudit(_ context.Context, object *entity.FileObject, audit *entity.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[object.ID] = cloneFile(object)
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeMetadataStore) UpsertWithAudit(_ context.Context, object *entity.FileObject, audit *entity.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	incoming := cloneFile(object)
	if existing, ok := f.files[object.ID]; ok {
		if incoming.CapturedAt == nil {
			incoming.CapturedAt = existing.CapturedAt
		}
	}
	f.files[object.ID] = incoming
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeMetadataStore) SetRetainedWithAudit(_ context.Context, id uuid.UUID, retained bool, audit *entity.AuditEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, audit)
	existing, ok := f.files[id]
	if !ok {
		return false, nil
	}
	existing.Retained = retained
	return true, nil
}

func (f *fakeMetadataStore) DeleteWithAudit(_ context.Context, id uuid.UUID, audit *entity.AuditEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErrs[id]; err != nil {
		return false, err
	}
	if _, ok := f.files[id]; !ok {
		return false, nil
	}
	delete(f.files, id)
	f.audits = append(f.audits, audit)
	return true, nil
}

func (f *fakeMetadataStore) FindByID(_ context.Context, id uuid.UUID) (*entity.FileObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.files[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneFile(existing), nil
}

func (f *fakeMetadataStore) FindRecent(_ context.Context, limit int) ([]entity.FileObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.FileObject
	for _, o := range f.files {
		out = append(out, *cloneFile(o))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ReceivedAt, out[j].ReceivedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMetadataStore) FindExpired(_ context.Context, cutoff time.Time) ([]entity.FileObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.FileObject
	for _, o := range f.files {
		if !o.Retained && o.ReceivedAt != nil && o.ReceivedAt.Before(cutoff) {
			out = append(out, *cloneFile(o))
		}
	}
	return out, nil
}

func (f *fakeMetadataStore) auditActions() []entity.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]entity.AuditAction, 0, len(f.audits))
	for _, a := range f.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func testLogger() *infra.LoggerClient {
	return infra.InitLoggerClient(&config.EnvConfig{})
}

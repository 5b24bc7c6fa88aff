package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/antartrc-jpg/gatebook/config"
)

// ErrObjectNotFound is returned when the blob store has no object at the key.
var ErrObjectNotFound = errors.New("object not found in blob store")

// DeleteOutcome reports what actually happened to a remote deletion so callers
// can log or assert on it instead of guessing from a swallowed error.
type DeleteOutcome int

const (
	DeleteOutcomeDeleted DeleteOutcome = iota
	DeleteOutcomeNotFoundRemote
	DeleteOutcomeTransientFailure
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteOutcomeDeleted:
		return "deleted"
	case DeleteOutcomeNotFoundRemote:
		return "not_found_remote"
	default:
		return "transient_failure"
	}
}

// ObjectStat is the authoritative metadata the blob store reports for an
// uploaded object.
type ObjectStat struct {
	Size        int64
	ContentType string
}

// MinioClient wraps two S3 clients against the same bucket: an internal one
// for stat/list/delete/get traffic and a public one whose endpoint appears in
// presigned URLs handed to browsers.
type MinioClient struct {
	Client   *minio.Client
	Public   *minio.Client
	Admin    *madmin.AdminClient
	Bucket   string
	Endpoint string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.S3.Endpoint
	if endpoint == "" {
		panic("S3 endpoint is not configured")
	}
	if cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
		panic("S3 credentials are not configured")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		Secure: cfg.S3.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	public, err := minio.New(cfg.S3.PublicEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		Secure: cfg.S3.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize public MinIO client: %v", err))
	}

	// Admin client is optional: non-MinIO S3 backends reject admin calls.
	adminClient, err := madmin.New(endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.UseSSL)
	if err != nil {
		log.Printf("Warning: MinIO admin client unavailable: %v", err)
		adminClient = nil
	}

	return &MinioClient{
		Client:   client,
		Public:   public,
		Admin:    adminClient,
		Bucket:   cfg.S3.Bucket,
		Endpoint: endpoint,
	}
}

// EnsureBucket creates the configured bucket if it does not exist yet.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PresignPut returns a time-boxed upload URL scoped to the key and declared
// content type. The URL is signed against the public endpoint.
func (m *MinioClient) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	u, err := m.Public.PresignHeader(ctx, http.MethodPut, m.Bucket, key, expires, nil, headers)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload URL: %w", err)
	}
	return u.String(), nil
}

// PresignGet returns a time-boxed download URL for the key. Download URLs are
// never cached; callers request a fresh one per read.
func (m *MinioClient) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := m.Public.PresignedGetObject(ctx, m.Bucket, key, expires, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign download URL: %w", err)
	}
	return u.String(), nil
}

// StatObject fetches size and content type for the key. Returns
// ErrObjectNotFound when the key does not exist.
func (m *MinioClient) StatObject(ctx context.Context, key string) (*ObjectStat, error) {
	info, err := m.Client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object %q: %w", key, err)
	}
	return &ObjectStat{Size: info.Size, ContentType: info.ContentType}, nil
}

// FirstKeyWithPrefix lists objects under the prefix and returns the
// lexicographically first key, or ErrObjectNotFound if the prefix is empty.
func (m *MinioClient) FirstKeyWithPrefix(ctx context.Context, prefix string) (string, error) {
	var keys []string
	for obj := range m.Client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return "", fmt.Errorf("failed to list objects under %q: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	if len(keys) == 0 {
		return "", ErrObjectNotFound
	}
	sort.Strings(keys)
	return keys[0], nil
}

// GetObject opens a streaming reader over the object body, used for content
// hash verification and capture-timestamp extraction.
func (m *MinioClient) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	return obj, nil
}

// RemoveObject deletes the object and reports the concrete outcome. A missing
// remote object is not an error from the caller's point of view.
func (m *MinioClient) RemoveObject(ctx context.Context, key string) DeleteOutcome {
	err := m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return DeleteOutcomeDeleted
	}
	if isNoSuchKey(err) {
		return DeleteOutcomeNotFoundRemote
	}
	return DeleteOutcomeTransientFailure
}

// Ping verifies the bucket is reachable, used by the health endpoint.
func (m *MinioClient) Ping(ctx context.Context) error {
	_, err := m.Client.BucketExists(ctx, m.Bucket)
	return err
}

// ServerVersion returns the storage server version via the admin API, or an
// empty string when no admin client is available.
func (m *MinioClient) ServerVersion(ctx context.Context) (string, error) {
	if m.Admin == nil {
		return "", nil
	}
	info, err := m.Admin.ServerInfo(ctx)
	if err != nil {
		return "", err
	}
	if len(info.Servers) > 0 {
		return info.Servers[0].Version, nil
	}
	return "", nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

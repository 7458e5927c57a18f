// Package blob wraps an S3-compatible object store as the leaf component
// backing oversize stage content (§4.2's 400 KiB inline threshold) and the
// File Sync Manager's cross-worker file transfer (§4.6).
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nexusforge/buildengine/pkg/config"
)

// Object is one stored object's metadata, as returned by list/stat calls.
type Object struct {
	Key          string
	Size         int64
	Checksum     string
	LastModified time.Time
}

// Store is a thin S3-compatible client used for both oversize stage content
// and synced project files, keyed under a single bucket with a well-known
// prefix layout (workflow-files/<project_id>/...).
type Store struct {
	client *minio.Client
	bucket string
}

// New dials the configured endpoint and returns a ready-to-use Store.
func New(cfg *config.BlobConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: dial %s: %w", cfg.Endpoint, err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the backing bucket if it does not already exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("blob: bucket exists check: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("blob: make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads content under key, carrying checksum and projectID as object
// metadata per the original file-sync implementation's ExtraArgs.Metadata.
func (s *Store) Put(ctx context.Context, key string, content []byte, checksum, projectID string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			UserMetadata: map[string]string{
				"checksum":   checksum,
				"project_id": projectID,
			},
		})
	if err != nil {
		return fmt.Errorf("blob: put %s: %w", key, err)
	}
	return nil
}

// Get downloads the full content stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", key, err)
	}
	return data, nil
}

// List returns every object whose key starts with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("blob: list %s: %w", prefix, info.Err)
		}
		objects = append(objects, Object{
			Key:          info.Key,
			Size:         info.Size,
			Checksum:     info.UserMetadata["checksum"],
			LastModified: info.LastModified,
		})
	}
	return objects, nil
}

// Exists reports whether key is present in the bucket.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchObject" {
			return false, nil
		}
		return false, fmt.Errorf("blob: stat %s: %w", key, err)
	}
	return true, nil
}

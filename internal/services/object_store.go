package services

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/davidfesteban/lazygallery/internal/config"
)

// ObjectInfo is the subset of blob metadata the service needs.
type ObjectInfo struct {
	Size        int64
	ETag        string
	ContentType string
}

// ObjectStore is the minimal surface over an S3-compatible blob store.
// Missing keys surface as ErrObjectNotFound; every other failure is a
// *StorageError. No retries happen at this layer.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, name string) error
	Put(ctx context.Context, bucket, key string, data []byte, contentType string, userMeta map[string]string) error
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, bucket, key string) error
}

// MinioStore implements ObjectStore against a MinIO / S3-compatible endpoint.
type MinioStore struct {
	client *minio.Client
	region string
}

func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3Secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client, region: cfg.S3Region}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context, name string) error {
	exists, err := s.client.BucketExists(ctx, name)
	if err != nil {
		return &StorageError{Op: "bucket-exists", Bucket: name, Err: err}
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return &StorageError{Op: "make-bucket", Bucket: name, Err: err}
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string, userMeta map[string]string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
	})
	if err != nil {
		return &StorageError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

func (s *MinioStore) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, s.mapError("stat", bucket, key, err)
	}
	return ObjectInfo{Size: info.Size, ETag: info.ETag, ContentType: info.ContentType}, nil
}

func (s *MinioStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError("get", bucket, key, err)
	}
	// GetObject is lazy; force the request so missing keys fail here instead
	// of on the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.mapError("get", bucket, key, err)
	}
	return obj, nil
}

func (s *MinioStore) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return s.mapError("remove", bucket, key, err)
	}
	return nil
}

func (s *MinioStore) mapError(op, bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return ErrObjectNotFound
	}
	return &StorageError{Op: op, Bucket: bucket, Key: key, Err: err}
}

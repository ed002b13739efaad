package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lataonhehe/data-contract-hackathon/config"
	"github.com/lataonhehe/data-contract-hackathon/pkg/apperr"
)

// MinioBlobStore stores contract YAML documents as objects in a MinIO/S3
// bucket, one object per contract.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

func NewMinioBlobStore(cfg *config.MinioConfig) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioBlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func objectKey(id string) string {
	return fmt.Sprintf("contracts/%s.yaml", id)
}

// Ensure creates the bucket if it doesn't exist.
func (s *MinioBlobStore) Ensure(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to check bucket %s", s.bucket)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "failed to create bucket %s", s.bucket)
		}
	}

	return nil
}

// Put uploads the YAML document and returns its locator.
func (s *MinioBlobStore) Put(ctx context.Context, id, content string) (string, error) {
	key := objectKey(id)
	_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/x-yaml",
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, err, "failed to upload contract YAML")
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Get downloads the YAML document for id.
func (s *MinioBlobStore) Get(ctx context.Context, id string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, err, "failed to fetch contract YAML")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return "", apperr.New(apperr.KindNotFound, "contract YAML %s not found", id)
		}
		return "", apperr.Wrap(apperr.KindStorage, err, "failed to read contract YAML")
	}

	return string(data), nil
}

// Delete removes the YAML document. RemoveObject does not error on absence.
func (s *MinioBlobStore) Delete(ctx context.Context, id string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(id), minio.RemoveObjectOptions{})
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to delete contract YAML")
	}

	return nil
}

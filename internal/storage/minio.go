// Package storage archives generated list exports in a MinIO bucket and
// hands out presigned download links. The whole layer is optional; when it
// is disabled exports stream straight to the client.
package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/groceryshare/backend/internal/config"
	"github.com/groceryshare/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOClient struct {
	client *minio.Client
	// presign signs against the public endpoint so links handed to the
	// browser resolve outside the cluster network.
	presign *minio.Client
	bucket  string
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	presign := client
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		presign, err = minio.New(cfg.PublicEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
	}

	return &MinIOClient{
		client:  client,
		presign: presign,
		bucket:  cfg.Bucket,
	}, nil
}

// EnsureBucket creates the export bucket when it does not exist yet.
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

func (m *MinIOClient) Upload(ctx context.Context, objectName string, payload []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("minio_upload_failed", err, map[string]interface{}{
			"object_name":  objectName,
			"size":         len(payload),
			"content_type": contentType,
			"bucket":       m.bucket,
		})
	} else {
		logger.Info("minio_upload_success", map[string]interface{}{
			"object_name":  objectName,
			"size":         len(payload),
			"content_type": contentType,
			"bucket":       m.bucket,
		})
	}
	return err
}

func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := m.presign.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

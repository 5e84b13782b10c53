package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinIOStorage struct {
	Client     *minio.Client
	BucketName string
}

// NewMinIOStorage connects to MinIO and creates the bucket if it is missing.
func NewMinIOStorage(ctx context.Context, opts MinIOOptions) (*MinIOStorage, error) {
	minioClient, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := minioClient.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		slog.Info("created snapshot bucket", "bucket", opts.Bucket)
	}

	return &MinIOStorage{
		Client:     minioClient,
		BucketName: opts.Bucket,
	}, nil
}

// UploadFile streams data into the bucket under objectName.
func (m *MinIOStorage) UploadFile(ctx context.Context, objectName string, data io.Reader, contentType string) error {
	info, err := m.Client.PutObject(ctx, m.BucketName, objectName, data, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file '%s' to MinIO: %w", objectName, err)
	}
	slog.Debug("uploaded snapshot object", "bucket", m.BucketName, "object", objectName, "size", info.Size)
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wyfcoding/tforest/config"
)

// MinIOClient 实现 Storage 接口，对接 MinIO 或 S3 兼容存储.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient 根据数据集对象配置构造驱动.
func NewMinIOClient(cfg config.ObjectConfig) (*MinIOClient, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		slog.Error("failed to create minio client", "endpoint", cfg.Endpoint, "error", err)
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	slog.Info("minio_client initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &MinIOClient{client: client, bucket: cfg.Bucket}, nil
}

// Download 打开对象读取流.
func (c *MinIOClient) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("minio client not initialized")
	}
	start := time.Now()
	obj, err := c.client.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		slog.Error("minio download failed", "object", objectName, "error", err)
		return nil, err
	}
	// GetObject 惰性请求，Stat 提前暴露不存在等错误.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	slog.Debug("minio object opened", "object", objectName, "duration", time.Since(start))
	return obj, nil
}

// Exists 判断对象是否存在.
func (c *MinIOClient) Exists(ctx context.Context, objectName string) (bool, error) {
	if c == nil || c.client == nil {
		return false, errors.New("minio client not initialized")
	}
	_, err := c.client.StatObject(ctx, c.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

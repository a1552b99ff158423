// Package storage 定义对象存储访问接口，数据集可从 MinIO/S3 兼容存储读取.
package storage

import (
	"context"
	"io"
)

// Storage 对象存储的只读视图.
type Storage interface {
	// Download 打开对象的读取流，调用者负责关闭.
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)

	// Exists 判断对象是否存在.
	Exists(ctx context.Context, objectName string) (bool, error)
}

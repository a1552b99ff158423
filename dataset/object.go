package dataset

import (
	"context"

	"github.com/wyfcoding/tforest/storage"
	"github.com/wyfcoding/tforest/xerrors"
)

// LoadObject 从对象存储读取 CSV 数据集.
func LoadObject(ctx context.Context, store storage.Storage, key string, hasHeader bool) (*Table, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return nil, xerrors.ErrDatasetFetch.WithDetail("object %q", key).WithCause(err)
	}
	defer rc.Close()
	return ReadCSV(rc, hasHeader)
}

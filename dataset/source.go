package dataset

import (
	"context"

	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/httpclient"
	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/storage"
	"github.com/wyfcoding/tforest/xerrors"
)

// Loaded 按配置加载的数据集及其标签列名.
type Loaded struct {
	Table       *Table
	LabelColumn string
}

// Open 根据 cfg.Dataset.Source 选择 CSV、UCI 或对象存储，m 可为 nil.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger, m *metrics.Metrics) (*Loaded, error) {
	dc := cfg.Dataset
	switch dc.Source {
	case "", "csv":
		t, err := LoadCSVFile(dc.Path, dc.HasHeader)
		if err != nil {
			return nil, err
		}
		return &Loaded{Table: t, LabelColumn: dc.LabelColumn}, nil
	case "uci":
		client := httpclient.NewClient(cfg.HTTPClient, logger, m)
		ds, err := NewUCIFetcher(client, dc.UCI.BaseURL, logger).Fetch(ctx, dc.UCI.ID)
		if err != nil {
			return nil, err
		}
		label := dc.LabelColumn
		if label == "" {
			label = ds.Target
		}
		return &Loaded{Table: ds.Table, LabelColumn: label}, nil
	case "object":
		store, err := storage.NewMinIOClient(dc.Object)
		if err != nil {
			return nil, xerrors.ErrConfiguration.WithDetail("object storage").WithCause(err)
		}
		t, err := LoadObject(ctx, store, dc.Object.Key, dc.HasHeader)
		if err != nil {
			return nil, err
		}
		return &Loaded{Table: t, LabelColumn: dc.LabelColumn}, nil
	default:
		return nil, xerrors.ErrConfiguration.WithDetail("unknown dataset source %q", dc.Source)
	}
}

// Prepare 先切分原始表，再只用训练部分学习词表，测试集中的新取值编码为 Unseen.
func Prepare(l *Loaded, testRatio float64, seed uint64) (enc *Encoder, train, test *Encoded, err error) {
	trainTable, testTable, err := SplitTable(l.Table, testRatio, seed)
	if err != nil {
		return nil, nil, nil, err
	}
	if enc, err = NewEncoder(trainTable, l.LabelColumn); err != nil {
		return nil, nil, nil, err
	}
	if train, err = enc.Encode(trainTable); err != nil {
		return nil, nil, nil, err
	}
	test = &Encoded{}
	if testTable.Len() > 0 {
		if test, err = enc.Encode(testTable); err != nil {
			return nil, nil, nil, err
		}
	}
	return enc, train, test, nil
}

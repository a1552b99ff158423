package forest

import (
	"context"

	"github.com/wyfcoding/tforest/xerrors"
)

// Report 在留出集上的评估结果。
type Report[L comparable] struct {
	Confusion map[L]map[L]int // 真实标签 -> 预测标签 -> 次数
	Accuracy  float64
	Correct   int
	Total     int
}

// Evaluate 在 rows/labels 上批量预测并统计准确率与混淆矩阵。
func Evaluate[L comparable](ctx context.Context, f *Forest[L], rows [][]int, labels []L) (*Report[L], error) {
	if len(rows) != len(labels) {
		return nil, xerrors.ErrDatasetShape.WithDetail("%d rows but %d labels", len(rows), len(labels))
	}
	if len(rows) == 0 {
		return nil, xerrors.ErrEmptyDataset.WithDetail("no evaluation rows")
	}

	predicted, err := f.PredictBatch(ctx, rows)
	if err != nil {
		return nil, err
	}

	report := &Report[L]{Confusion: make(map[L]map[L]int), Total: len(rows)}
	for i, want := range labels {
		got := predicted[i]
		if report.Confusion[want] == nil {
			report.Confusion[want] = make(map[L]int)
		}
		report.Confusion[want][got]++
		if got == want {
			report.Correct++
		}
	}
	report.Accuracy = float64(report.Correct) / float64(report.Total)
	return report, nil
}

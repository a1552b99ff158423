package forest

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/wyfcoding/tforest/xerrors"
)

// sampleSizes 计算每棵树的行样本数与特征样本数。
// 行样本数为 round(SampleRatio*rows)，为 0 视为配置错误；特征样本数至少为 1。
func sampleSizes(cfg Config, rows, columns int) (int, int, error) {
	rowSample := int(math.Round(cfg.SampleRatio * float64(rows)))
	if rowSample < 1 {
		return 0, 0, xerrors.ErrConfiguration.WithDetail(
			"sample ratio %.4f over %d rows yields an empty bootstrap", cfg.SampleRatio, rows)
	}
	featureSample := max(1, int(math.Round(cfg.FeatureRatio*float64(columns))))
	return rowSample, min(featureSample, columns), nil
}

// bootstrap 有放回地均匀抽取 n 行，返回新的行切片与对齐的标签切片。
func bootstrap[L comparable](r *rand.Rand, data [][]int, labels []L, n int) ([][]int, []L) {
	rows := make([][]int, n)
	subset := make([]L, n)
	for i := range n {
		idx := r.IntN(len(data))
		rows[i] = data[idx]
		subset[i] = labels[idx]
	}
	return rows, subset
}

// subsampleFeatures 无放回地从 [0, columns) 中抽取 k 个特征，结果升序。
func subsampleFeatures(r *rand.Rand, columns, k int) []int {
	features := r.Perm(columns)[:k]
	slices.Sort(features)
	return features
}

package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/wyfcoding/tforest/xerrors"
)

// TrainTestSplit 以固定种子打乱后切分，测试集大小为 round(testRatio*n).
func TrainTestSplit(e *Encoded, testRatio float64, seed uint64) (train, test *Encoded, err error) {
	trainIdx, testIdx, err := splitIndices(e.Len(), testRatio, seed)
	if err != nil {
		return nil, nil, err
	}
	pick := func(idx []int) *Encoded {
		out := &Encoded{Rows: make([][]int, len(idx)), Labels: make([]string, len(idx))}
		for i, j := range idx {
			out.Rows[i] = e.Rows[j]
			out.Labels[i] = e.Labels[j]
		}
		return out
	}
	return pick(trainIdx), pick(testIdx), nil
}

// SplitTable 与 TrainTestSplit 相同的切分作用于原始表，便于只用训练部分学习词表.
func SplitTable(t *Table, testRatio float64, seed uint64) (train, test *Table, err error) {
	trainIdx, testIdx, err := splitIndices(t.Len(), testRatio, seed)
	if err != nil {
		return nil, nil, err
	}
	pick := func(idx []int) *Table {
		out := &Table{Header: t.Header, Records: make([][]string, len(idx))}
		for i, j := range idx {
			out.Records[i] = t.Records[j]
		}
		return out
	}
	return pick(trainIdx), pick(testIdx), nil
}

func splitIndices(n int, testRatio float64, seed uint64) (trainIdx, testIdx []int, err error) {
	if testRatio < 0 || testRatio >= 1 {
		return nil, nil, xerrors.ErrConfiguration.WithDetail("test_ratio must be in [0, 1), got %v", testRatio)
	}
	nTest := int(math.Round(testRatio * float64(n)))
	if n-nTest <= 0 {
		return nil, nil, xerrors.ErrEmptyDataset.WithDetail("split leaves no training rows")
	}
	//nolint:gosec // 数据切分不需要加密随机数.
	perm := rand.New(rand.NewPCG(seed, 0)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

package tree

import (
	"math"

	"github.com/wyfcoding/tforest/xerrors"
	"gonum.org/v1/gonum/floats"
)

// CriterionKind 分裂准则名称，用于配置。
type CriterionKind string

const (
	CriterionInformationGain CriterionKind = "information_gain"
	CriterionGiniGain        CriterionKind = "gini_gain"
	CriterionGainRatio       CriterionKind = "gain_ratio"
)

// Criterion 评估在当前分区上按某个特征分裂的收益，值越大越好。
// 实现必须是无状态的纯函数，且永远返回有限值。
type Criterion[L comparable] interface {
	Gain(data [][]int, labels []L, feature int) float64
}

// NewCriterion 根据名称返回对应的分裂准则。
func NewCriterion[L comparable](kind CriterionKind) (Criterion[L], error) {
	switch kind {
	case CriterionInformationGain, "":
		return InformationGain[L]{}, nil
	case CriterionGiniGain:
		return GiniGain[L]{}, nil
	case CriterionGainRatio:
		return GainRatio[L]{}, nil
	default:
		return nil, xerrors.ErrUnknownCriterion.WithDetail("criterion %q", kind)
	}
}

// InformationGain 父节点熵减去子集熵的加权和。
type InformationGain[L comparable] struct{}

func (InformationGain[L]) Gain(data [][]int, labels []L, feature int) float64 {
	return impurityReduction(data, labels, feature, Entropy[L])
}

// GiniGain 与信息增益形式相同，但使用基尼不纯度。
type GiniGain[L comparable] struct{}

func (GiniGain[L]) Gain(data [][]int, labels []L, feature int) float64 {
	return impurityReduction(data, labels, feature, Gini[L])
}

// GainRatio 信息增益除以分裂信息（C4.5），抑制高基数特征。
// 增益或分裂信息为 0 时返回 0。
type GainRatio[L comparable] struct{}

func (GainRatio[L]) Gain(data [][]int, labels []L, feature int) float64 {
	if len(labels) == 0 {
		return 0
	}
	gain := impurityReduction(data, labels, feature, Entropy[L])
	if gain == 0 {
		return 0
	}

	total := float64(len(labels))
	var splitInfo float64
	for _, p := range SplitLabels(data, labels, feature) {
		if len(p.Labels) == 0 {
			continue
		}
		w := float64(len(p.Labels)) / total
		splitInfo -= w * math.Log2(w)
	}
	if splitInfo == 0 {
		return 0
	}
	return gain / splitInfo
}

func impurityReduction[L comparable](data [][]int, labels []L, feature int, impurity func([]L) float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	total := float64(len(labels))
	var weighted float64
	for _, p := range SplitLabels(data, labels, feature) {
		if len(p.Labels) == 0 {
			continue
		}
		weighted += float64(len(p.Labels)) / total * impurity(p.Labels)
	}
	return impurity(labels) - weighted
}

// Entropy 以 2 为底的香农熵，空集为 0。
func Entropy[L comparable](labels []L) float64 {
	probs := distribution(labels)
	var h float64
	for _, p := range probs {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Gini 基尼不纯度 1 - Σp²，空集为 0。
func Gini[L comparable](labels []L) float64 {
	probs := distribution(labels)
	if len(probs) == 0 {
		return 0
	}
	return 1 - floats.Dot(probs, probs)
}

// distribution 返回按首次出现顺序排列的经验类别概率。
// 固定顺序保证浮点累加结果可复现。
func distribution[L comparable](labels []L) []float64 {
	if len(labels) == 0 {
		return nil
	}
	_, counts := countLabels(labels)
	probs := make([]float64, len(counts))
	for i, c := range counts {
		probs[i] = float64(c)
	}
	floats.Scale(1/float64(len(labels)), probs)
	return probs
}

// countLabels 统计标签频次，结果按首次出现顺序排列。
func countLabels[L comparable](labels []L) ([]L, []int) {
	index := make(map[L]int)
	var order []L
	var counts []int
	for _, l := range labels {
		i, ok := index[l]
		if !ok {
			i = len(order)
			index[l] = i
			order = append(order, l)
			counts = append(counts, 0)
		}
		counts[i]++
	}
	return order, counts
}

// MajorityLabel 返回出现次数最多的标签。
// 平局时取按输入顺序扫描最先达到最大计数的标签；空输入返回零值和 false。
func MajorityLabel[L comparable](labels []L) (L, bool) {
	var best L
	if len(labels) == 0 {
		return best, false
	}
	seen := make(map[L]int, 4)
	bestCount := 0
	for _, l := range labels {
		seen[l]++
		if seen[l] > bestCount {
			bestCount = seen[l]
			best = l
		}
	}
	return best, true
}

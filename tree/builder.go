package tree

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/wyfcoding/tforest/xerrors"
)

// builder 执行一次自顶向下的递归建树，生命周期仅限一次 Build 调用。
type builder[L comparable] struct {
	ctx            context.Context
	criterion      Criterion[L]
	rng            *rand.Rand
	tournamentSize int
	bounded        bool
	nodes          int
}

// build 在当前分区上生成子树。depth 为剩余深度预算，仅在 bounded 时生效。
// 停止条件的检查顺序：标签纯净 -> 无候选特征 -> 深度耗尽。
func (b *builder[L]) build(data [][]int, labels []L, features []int, depth int) (*Node[L], error) {
	if err := b.ctx.Err(); err != nil {
		return nil, xerrors.ErrBuildCanceled.WithCause(err)
	}
	b.nodes++

	if pure(labels) {
		return newLeaf(labels[0], len(labels)), nil
	}
	majority, _ := MajorityLabel(labels)
	if len(features) == 0 {
		return newLeaf(majority, len(labels)), nil
	}
	if b.bounded && depth <= 0 {
		return newLeaf(majority, len(labels)), nil
	}

	chosen, ok := b.tournament(data, labels, features)
	if !ok {
		return newLeaf(majority, len(labels)), nil
	}

	remaining := slices.DeleteFunc(slices.Clone(features), func(f int) bool { return f == chosen })
	node := &Node[L]{
		Feature:      chosen,
		DefaultLabel: majority,
		Samples:      len(labels),
		Children:     make(map[int]*Node[L]),
	}
	for _, part := range Split(data, labels, chosen) {
		if len(part.Labels) == 0 {
			node.Children[part.Value] = newLeaf(majority, 0)
			continue
		}
		child, err := b.build(part.Rows, part.Labels, remaining, depth-1)
		if err != nil {
			return nil, err
		}
		node.Children[part.Value] = child
	}
	return node, nil
}

// tournament 有放回地抽取 tournamentSize 个候选特征并去重（保留首次抽中的顺序），
// 返回增益严格最大者；增益相同时先抽中的获胜。
func (b *builder[L]) tournament(data [][]int, labels []L, features []int) (int, bool) {
	if len(features) == 0 {
		return 0, false
	}
	sampled := linkedhashset.New()
	for range b.tournamentSize {
		sampled.Add(features[b.rng.IntN(len(features))])
	}

	best, bestGain, found := 0, math.Inf(-1), false
	for _, v := range sampled.Values() {
		feature := v.(int)
		if gain := b.criterion.Gain(data, labels, feature); gain > bestGain {
			best, bestGain, found = feature, gain, true
		}
	}
	return best, found
}

func pure[L comparable](labels []L) bool {
	for _, l := range labels[1:] {
		if l != labels[0] {
			return false
		}
	}
	return true
}

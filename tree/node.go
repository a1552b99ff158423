package tree

import (
	"maps"
	"slices"
)

// Node 决策树节点，叶子节点或内部节点。
// 内部节点按 Feature 的取值查找子节点；取值未在训练中出现时返回 DefaultLabel。
// 每个节点独占其子节点，构建完成后不再修改。
type Node[L comparable] struct {
	Children     map[int]*Node[L] // 取值 -> 子节点，仅内部节点有效。
	Label        L                // 叶子节点的预测标签。
	DefaultLabel L                // 内部节点训练样本的多数标签。
	Feature      int              // 分裂特征下标，仅内部节点有效。
	Samples      int              // 到达该节点的训练样本数。
	IsLeaf       bool
}

func newLeaf[L comparable](label L, samples int) *Node[L] {
	return &Node[L]{Label: label, Samples: samples, IsLeaf: true}
}

// Predict 沿树向下遍历直到叶子，遇到未见过的取值时返回当前节点的 DefaultLabel。
// 调用方负责保证 row 的长度与训练数据一致。
func (n *Node[L]) Predict(row []int) L {
	node := n
	for !node.IsLeaf {
		if node.Feature >= len(row) {
			return node.DefaultLabel
		}
		child, ok := node.Children[row[node.Feature]]
		if !ok {
			return node.DefaultLabel
		}
		node = child
	}
	return node.Label
}

// Values 返回子节点对应的取值，升序。
func (n *Node[L]) Values() []int {
	return slices.Sorted(maps.Keys(n.Children))
}

// Depth 返回以 n 为根的子树深度，单个叶子深度为 0。
func (n *Node[L]) Depth() int {
	if n == nil || n.IsLeaf {
		return 0
	}
	deepest := 0
	for _, child := range n.Children {
		deepest = max(deepest, child.Depth())
	}
	return deepest + 1
}

// Leaves 返回叶子数量。
func (n *Node[L]) Leaves() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf {
		return 1
	}
	total := 0
	for _, child := range n.Children {
		total += child.Leaves()
	}
	return total
}

// Walk 先序遍历子树，path 为从根到当前节点经过的分裂特征。
// fn 返回 false 时停止深入该节点的子树。
func (n *Node[L]) Walk(fn func(path []int, node *Node[L]) bool) {
	n.walk(nil, fn)
}

func (n *Node[L]) walk(path []int, fn func([]int, *Node[L]) bool) {
	if n == nil || !fn(path, n) || n.IsLeaf {
		return
	}
	next := append(slices.Clip(path), n.Feature)
	for _, v := range n.Values() {
		n.Children[v].walk(next, fn)
	}
}

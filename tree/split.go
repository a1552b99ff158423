package tree

import "slices"

// Partition 当前分区中某个特征取值对应的行子集。
type Partition[L comparable] struct {
	Rows   [][]int
	Labels []L
	Value  int
}

// Split 按 feature 在当前行子集中实际出现的取值划分数据，结果按取值升序排列。
// 返回的行切片是新分配的，原始行本身只读共享，不会被修改。
func Split[L comparable](data [][]int, labels []L, feature int) []Partition[L] {
	values, groups := groupRows(data, feature)
	parts := make([]Partition[L], len(values))
	for i, v := range values {
		rows := make([][]int, len(groups[i]))
		subset := make([]L, len(groups[i]))
		for j, idx := range groups[i] {
			rows[j] = data[idx]
			subset[j] = labels[idx]
		}
		parts[i] = Partition[L]{Value: v, Rows: rows, Labels: subset}
	}
	return parts
}

// SplitLabels 与 Split 相同，但只收集标签，供分裂准则使用。
func SplitLabels[L comparable](data [][]int, labels []L, feature int) []Partition[L] {
	values, groups := groupRows(data, feature)
	parts := make([]Partition[L], len(values))
	for i, v := range values {
		subset := make([]L, len(groups[i]))
		for j, idx := range groups[i] {
			subset[j] = labels[idx]
		}
		parts[i] = Partition[L]{Value: v, Labels: subset}
	}
	return parts
}

// groupRows 返回升序的不同取值及每个取值对应的行下标。
func groupRows(data [][]int, feature int) ([]int, [][]int) {
	byValue := make(map[int][]int)
	for i, row := range data {
		v := row[feature]
		byValue[v] = append(byValue[v], i)
	}
	values := make([]int, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	slices.Sort(values)

	groups := make([][]int, len(values))
	for i, v := range values {
		groups[i] = byValue[v]
	}
	return values, groups
}

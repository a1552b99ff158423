package dataset

import (
	"slices"

	"github.com/wyfcoding/tforest/xerrors"
)

// Unseen 训练时未出现过的取值编码，预测时会落到节点的默认标签.
const Unseen = -1

// Encoded 编码后的数据集.
type Encoded struct {
	Rows   [][]int
	Labels []string
}

// Len 行数.
func (e *Encoded) Len() int {
	return len(e.Rows)
}

// Encoder 为每个特征列维护 字符串 -> 编码 的词表.
// 词表按字典序编号，同一训练表总是得到相同编码.
type Encoder struct {
	label    int
	columns  []int
	names    []string
	vocab    []map[string]int
	values   [][]string
	features map[string]int
}

// NewEncoder 从训练表学习词表，labelColumn 为空时使用最后一列作为标签.
// "?" 等缺失标记被当作普通类别.
func NewEncoder(t *Table, labelColumn string) (*Encoder, error) {
	if t == nil || t.Len() == 0 {
		return nil, xerrors.ErrEmptyDataset.WithDetail("no records to learn vocabulary from")
	}
	if len(t.Header) < 2 {
		return nil, xerrors.ErrEmptyDataset.WithDetail("need a label column and at least one feature column")
	}

	label := len(t.Header) - 1
	if labelColumn != "" {
		idx, err := t.Column(labelColumn)
		if err != nil {
			return nil, err
		}
		label = idx
	}

	e := &Encoder{label: label, features: make(map[string]int)}
	for col, name := range t.Header {
		if col == label {
			continue
		}
		e.features[name] = len(e.columns)
		e.columns = append(e.columns, col)
		e.names = append(e.names, name)
	}

	e.vocab = make([]map[string]int, len(e.columns))
	e.values = make([][]string, len(e.columns))
	for i, col := range e.columns {
		var seen []string
		for _, rec := range t.Records {
			if !slices.Contains(seen, rec[col]) {
				seen = append(seen, rec[col])
			}
		}
		slices.Sort(seen)
		e.values[i] = seen
		e.vocab[i] = make(map[string]int, len(seen))
		for code, v := range seen {
			e.vocab[i][v] = code
		}
	}
	return e, nil
}

// FeatureNames 特征列名，顺序与编码后的列一致.
func (e *Encoder) FeatureNames() []string {
	return slices.Clone(e.names)
}

// LabelColumn 标签列名所在的原表下标.
func (e *Encoder) LabelColumn() int {
	return e.label
}

// Values 返回第 feature 个特征的词表.
func (e *Encoder) Values(feature int) []string {
	if feature < 0 || feature >= len(e.values) {
		return nil
	}
	return slices.Clone(e.values[feature])
}

// Encode 编码整张表，表头需与训练表列数一致.
func (e *Encoder) Encode(t *Table) (*Encoded, error) {
	if t == nil || t.Len() == 0 {
		return nil, xerrors.ErrEmptyDataset.WithDetail("no records to encode")
	}
	width := len(e.columns) + 1
	out := &Encoded{
		Rows:   make([][]int, 0, t.Len()),
		Labels: make([]string, 0, t.Len()),
	}
	for i, rec := range t.Records {
		if len(rec) != width {
			return nil, xerrors.ErrDatasetShape.WithDetail("record %d has %d fields, expected %d", i, len(rec), width)
		}
		row := make([]int, len(e.columns))
		for j, col := range e.columns {
			row[j] = e.code(j, rec[col])
		}
		out.Rows = append(out.Rows, row)
		out.Labels = append(out.Labels, rec[e.label])
	}
	return out, nil
}

// EncodeFeatures 按特征顺序编码一条只含特征值的记录.
func (e *Encoder) EncodeFeatures(values []string) ([]int, error) {
	if len(values) != len(e.columns) {
		return nil, xerrors.ErrPredictionShape.WithDetail("expected %d features, got %d", len(e.columns), len(values))
	}
	row := make([]int, len(values))
	for j, v := range values {
		row[j] = e.code(j, v)
	}
	return row, nil
}

// EncodeNamed 编码 特征名 -> 取值 形式的记录，缺少任一特征时报错，多余的键被忽略.
func (e *Encoder) EncodeNamed(values map[string]string) ([]int, error) {
	row := make([]int, len(e.columns))
	for j, name := range e.names {
		v, ok := values[name]
		if !ok {
			return nil, xerrors.ErrPredictionShape.WithDetail("missing feature %q", name)
		}
		row[j] = e.code(j, v)
	}
	return row, nil
}

func (e *Encoder) code(feature int, v string) int {
	if c, ok := e.vocab[feature][v]; ok {
		return c
	}
	return Unseen
}

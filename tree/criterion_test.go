package tree

import (
	"math"
	"testing"
)

func TestInformationGainBinaryFeature(t *testing.T) {
	data := [][]int{{0}, {1}, {0}, {1}}
	labels := []string{"yes", "no", "yes", "yes"}

	got := InformationGain[string]{}.Gain(data, labels, 0)
	want := Entropy(labels) - (0.5*Entropy([]string{"yes", "yes"}) + 0.5*Entropy([]string{"no", "yes"}))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("gain = %v, formula = %v", got, want)
	}
	if math.Abs(got-0.3113) > 1e-3 {
		t.Errorf("gain = %v, want ~0.3113", got)
	}
}

func TestImpurityBounds(t *testing.T) {
	tests := []struct {
		name     string
		labels   []int
		distinct int
	}{
		{"single", []int{1, 1, 1}, 1},
		{"balanced", []int{1, 2, 1, 2}, 2},
		{"skewed", []int{1, 1, 1, 2}, 2},
		{"three", []int{1, 2, 3, 1, 2, 3}, 3},
		{"four", []int{4, 1, 2, 3, 3, 3, 1}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Entropy(tt.labels)
			if h < 0 || h > math.Log2(float64(tt.distinct))+1e-12 {
				t.Errorf("entropy %v out of [0, log2(%d)]", h, tt.distinct)
			}
			g := Gini(tt.labels)
			if g < 0 || g > 1-1/float64(tt.distinct)+1e-12 {
				t.Errorf("gini %v out of [0, 1-1/%d]", g, tt.distinct)
			}
		})
	}

	if Entropy([]int{}) != 0 || Gini([]int{}) != 0 {
		t.Error("impurity of empty set must be 0")
	}
	if h := Entropy([]int{1, 2}); math.Abs(h-1) > 1e-12 {
		t.Errorf("entropy of fair coin = %v, want 1", h)
	}
	if g := Gini([]int{1, 2}); math.Abs(g-0.5) > 1e-12 {
		t.Errorf("gini of fair coin = %v, want 0.5", g)
	}
}

func TestGiniGain(t *testing.T) {
	data := [][]int{{0}, {0}, {1}, {1}}
	labels := []int{1, 1, 2, 2}
	if g := (GiniGain[int]{}).Gain(data, labels, 0); math.Abs(g-0.5) > 1e-12 {
		t.Errorf("perfect split gini gain = %v, want 0.5", g)
	}
}

func TestGainRatio(t *testing.T) {
	// 常量特征：split_info 为 0。
	constant := [][]int{{3}, {3}, {3}, {3}}
	labels := []string{"a", "b", "a", "b"}
	if g := (GainRatio[string]{}).Gain(constant, labels, 0); g != 0 {
		t.Errorf("constant feature gain ratio = %v, want 0", g)
	}

	// 增益为 0 的分裂。
	useless := [][]int{{0}, {0}, {1}, {1}}
	if g := (GainRatio[string]{}).Gain(useless, []string{"a", "b", "a", "b"}, 0); g != 0 {
		t.Errorf("zero gain ratio = %v, want 0", g)
	}

	// 完美二分：增益 1，split_info 1。
	perfect := [][]int{{0}, {0}, {1}, {1}}
	if g := (GainRatio[string]{}).Gain(perfect, []string{"a", "a", "b", "b"}, 0); math.Abs(g-1) > 1e-12 {
		t.Errorf("perfect gain ratio = %v, want 1", g)
	}

	// 同等增益下，高基数特征的增益率更低。
	data := [][]int{{0, 0}, {0, 1}, {1, 2}, {1, 3}}
	ls := []string{"a", "a", "b", "b"}
	low := (GainRatio[string]{}).Gain(data, ls, 0)
	high := (GainRatio[string]{}).Gain(data, ls, 1)
	if !(low > high) {
		t.Errorf("gain ratio should penalise cardinality: low=%v high=%v", low, high)
	}
}

func TestCriteriaAreFinite(t *testing.T) {
	data := [][]int{{0, 1}, {1, 1}, {2, 1}, {0, 1}}
	labels := []int{7, 7, 7, 7}
	for _, kind := range []CriterionKind{CriterionInformationGain, CriterionGiniGain, CriterionGainRatio} {
		c, err := NewCriterion[int](kind)
		if err != nil {
			t.Fatalf("NewCriterion(%s): %v", kind, err)
		}
		for f := range 2 {
			g := c.Gain(data, labels, f)
			if math.IsNaN(g) || math.IsInf(g, 0) {
				t.Errorf("%s feature %d: gain %v is not finite", kind, f, g)
			}
		}
		if g := c.Gain(nil, []int{}, 0); g != 0 {
			t.Errorf("%s on empty partition = %v, want 0", kind, g)
		}
	}
}

func TestNewCriterionUnknown(t *testing.T) {
	if _, err := NewCriterion[int]("chi_square"); err == nil {
		t.Fatal("expected error for unknown criterion")
	}
}

func TestMajorityLabel(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"clear", []string{"a", "b", "b"}, "b"},
		{"tie first to reach max", []string{"a", "b", "b", "a"}, "b"},
		{"tie in order", []string{"a", "b"}, "a"},
		{"single", []string{"z"}, "z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MajorityLabel(tt.labels)
			if !ok || got != tt.want {
				t.Errorf("MajorityLabel(%v) = %q, want %q", tt.labels, got, tt.want)
			}
		})
	}
	if _, ok := MajorityLabel([]string{}); ok {
		t.Error("empty input must report false")
	}
}

func TestSplitObservedValuesSorted(t *testing.T) {
	data := [][]int{{5, 0}, {2, 1}, {5, 1}, {9, 0}, {2, 0}}
	labels := []int{1, 2, 3, 4, 5}

	parts := Split(data, labels, 0)
	wantValues := []int{2, 5, 9}
	if len(parts) != len(wantValues) {
		t.Fatalf("got %d partitions, want %d", len(parts), len(wantValues))
	}
	total := 0
	for i, p := range parts {
		if p.Value != wantValues[i] {
			t.Errorf("partition %d value = %d, want %d", i, p.Value, wantValues[i])
		}
		if len(p.Rows) != len(p.Labels) {
			t.Errorf("partition %d rows/labels misaligned", i)
		}
		for j, row := range p.Rows {
			if row[0] != p.Value {
				t.Errorf("partition %d row %d has value %d", i, j, row[0])
			}
		}
		total += len(p.Labels)
	}
	if total != len(labels) {
		t.Errorf("partitions cover %d rows, want %d", total, len(labels))
	}
	if got := parts[0].Labels; len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Errorf("value 2 labels = %v, want [2 5] in input order", got)
	}

	// 只包含当前子集出现过的取值。
	sub := Split(data[:2], labels[:2], 0)
	if len(sub) != 2 {
		t.Errorf("subset split produced %d partitions, want 2", len(sub))
	}
}

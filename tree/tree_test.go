package tree

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	"github.com/wyfcoding/tforest/xerrors"
)

// syntheticDataset 生成标签完全由前两列决定的类别数据。
func syntheticDataset(seed uint64, rows, columns int) ([][]int, []string) {
	r := rand.New(rand.NewPCG(seed, 1))
	data := make([][]int, rows)
	labels := make([]string, rows)
	for i := range data {
		row := make([]int, columns)
		for j := range row {
			row[j] = r.IntN(3)
		}
		data[i] = row
		if (row[0]+row[1])%2 == 0 {
			labels[i] = "even"
		} else {
			labels[i] = "odd"
		}
	}
	return data, labels
}

func mustTree[L comparable](t *testing.T, cfg Config, seed uint64) *Tree[L] {
	t.Helper()
	tr, err := New[L](cfg, WithSource(rand.NewPCG(seed, 0)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestBuildPureLeavesOnTrainingRows(t *testing.T) {
	data, labels := syntheticDataset(7, 200, 5)
	cfg := Config{Criterion: CriterionInformationGain, TournamentSize: 3, MaxDepth: Unbounded}
	tr := mustTree[string](t, cfg, 42)
	if err := tr.Build(context.Background(), data, labels, AllFeatures(5)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 每个训练样本落到的叶子上只应出现一种标签。
	reached := make(map[*Node[string]]map[string]bool)
	for i, row := range data {
		leaf := leafFor(tr.Root(), row)
		if reached[leaf] == nil {
			reached[leaf] = make(map[string]bool)
		}
		reached[leaf][labels[i]] = true
	}
	for leaf, seen := range reached {
		if len(seen) != 1 {
			t.Fatalf("leaf %+v reached by labels %v", leaf, seen)
		}
		if !seen[leaf.Label] {
			t.Errorf("leaf label %q not among training labels %v", leaf.Label, seen)
		}
	}
	for i, row := range data {
		got, err := tr.Predict(row)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if got != labels[i] {
			t.Fatalf("row %d predicted %q, want %q", i, got, labels[i])
		}
	}
}

func leafFor[L comparable](n *Node[L], row []int) *Node[L] {
	for !n.IsLeaf {
		n = n.Children[row[n.Feature]]
	}
	return n
}

func TestPathsShrinkFeatureSet(t *testing.T) {
	data, labels := syntheticDataset(11, 150, 6)
	features := []int{0, 1, 3, 5}
	tr := mustTree[string](t, Config{TournamentSize: 2, MaxDepth: Unbounded}, 3)
	if err := tr.Build(context.Background(), data, labels, features); err != nil {
		t.Fatalf("Build: %v", err)
	}

	tr.Root().Walk(func(path []int, n *Node[string]) bool {
		seen := make(map[int]bool)
		for _, f := range path {
			if seen[f] {
				t.Fatalf("feature %d used twice on path %v", f, path)
			}
			if !slices.Contains(features, f) {
				t.Fatalf("feature %d outside candidate set", f)
			}
			seen[f] = true
		}
		if len(path) > len(features) {
			t.Fatalf("path %v longer than candidate set", path)
		}
		if !n.IsLeaf && seen[n.Feature] {
			t.Fatalf("node splits on %d already used by ancestors %v", n.Feature, path)
		}
		return true
	})
}

func TestMaxDepthZeroYieldsMajorityLeaf(t *testing.T) {
	data := [][]int{{0}, {1}, {0}, {1}, {1}}
	labels := []string{"yes", "no", "no", "yes", "no"}
	tr := mustTree[string](t, Config{TournamentSize: 2, MaxDepth: 0}, 1)
	if err := tr.Build(context.Background(), data, labels, AllFeatures(1)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	root := tr.Root()
	if !root.IsLeaf || root.Label != "no" {
		t.Fatalf("root = %+v, want leaf labelled no", root)
	}
}

func TestMaxDepthBoundsTree(t *testing.T) {
	data, labels := syntheticDataset(5, 300, 6)
	for _, depth := range []int{1, 2, 3} {
		tr := mustTree[string](t, Config{TournamentSize: 2, MaxDepth: depth}, 9)
		if err := tr.Build(context.Background(), data, labels, AllFeatures(6)); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if got := tr.Root().Depth(); got > depth {
			t.Errorf("max depth %d produced depth %d", depth, got)
		}
	}
}

func TestNoFeaturesYieldsMajorityLeaf(t *testing.T) {
	data := [][]int{{0}, {1}, {1}}
	labels := []int{3, 4, 4}
	tr := mustTree[int](t, DefaultConfig(), 1)
	if err := tr.Build(context.Background(), data, labels, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root := tr.Root(); !root.IsLeaf || root.Label != 4 {
		t.Fatalf("root = %+v, want leaf 4", root)
	}
}

func TestPredictUnseenValueFallsBackToDefault(t *testing.T) {
	data := [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 1}}
	labels := []string{"a", "a", "b", "b", "b"}
	tr := mustTree[string](t, Config{TournamentSize: 4, MaxDepth: Unbounded}, 2)
	if err := tr.Build(context.Background(), data, labels, AllFeatures(2)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	root := tr.Root()
	if root.IsLeaf {
		t.Fatal("expected an internal root")
	}
	row := []int{0, 0}
	row[root.Feature] = 99
	got, err := tr.Predict(row)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != root.DefaultLabel {
		t.Errorf("unseen value predicted %q, want default %q", got, root.DefaultLabel)
	}
	if root.DefaultLabel != "b" {
		t.Errorf("default label = %q, want majority b", root.DefaultLabel)
	}
}

func TestBuildIsDeterministicForSeed(t *testing.T) {
	data, labels := syntheticDataset(3, 120, 8)
	cfg := Config{Criterion: CriterionGainRatio, TournamentSize: 2, MaxDepth: 4}

	first := mustTree[string](t, cfg, 77)
	second := mustTree[string](t, cfg, 77)
	for _, tr := range []*Tree[string]{first, second} {
		if err := tr.Build(context.Background(), data, labels, AllFeatures(8)); err != nil {
			t.Fatalf("Build: %v", err)
		}
	}
	if !reflect.DeepEqual(first.Root(), second.Root()) {
		t.Fatal("same seed produced different trees")
	}
}

func TestPredictErrors(t *testing.T) {
	tr := mustTree[int](t, DefaultConfig(), 1)
	if _, err := tr.Predict([]int{0}); !errors.Is(err, xerrors.ErrNotBuilt) {
		t.Errorf("predict before build: err = %v", err)
	}
	if err := tr.Build(context.Background(), [][]int{{0, 1}, {1, 0}}, []int{1, 2}, AllFeatures(2)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, row := range [][]int{{0}, {0, 1, 2}, nil} {
		if _, err := tr.Predict(row); !errors.Is(err, xerrors.ErrPredictionShape) {
			t.Errorf("Predict(%v): err = %v, want shape error", row, err)
		}
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name     string
		data     [][]int
		labels   []int
		features []int
		want     error
	}{
		{"no rows", nil, nil, nil, xerrors.ErrEmptyDataset},
		{"no columns", [][]int{{}, {}}, []int{1, 2}, nil, xerrors.ErrEmptyDataset},
		{"label mismatch", [][]int{{1}, {2}}, []int{1}, nil, xerrors.ErrDatasetShape},
		{"ragged", [][]int{{1, 2}, {2}}, []int{1, 2}, nil, xerrors.ErrDatasetShape},
		{"feature out of range", [][]int{{1}, {2}}, []int{1, 2}, []int{3}, xerrors.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := mustTree[int](t, DefaultConfig(), 1)
			err := tr.Build(context.Background(), tt.data, tt.labels, tt.features)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if tr.Root() != nil {
				t.Error("failed build must not publish a root")
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := New[int](Config{TournamentSize: 0}); !errors.Is(err, xerrors.ErrConfiguration) {
		t.Errorf("tournament size 0: err = %v", err)
	}
	if _, err := New[int](Config{TournamentSize: 1, MaxDepth: -2}); !errors.Is(err, xerrors.ErrConfiguration) {
		t.Errorf("max depth -2: err = %v", err)
	}
	if _, err := New[int](Config{TournamentSize: 1, Criterion: "bogus"}); !errors.Is(err, xerrors.ErrUnknownCriterion) {
		t.Errorf("bogus criterion: err = %v", err)
	}
}

// Config 只由 Validate 校验，解码与标签校验属于 config.ForestConfig。
func TestConfigCarriesNoDecodeTags(t *testing.T) {
	typ := reflect.TypeFor[Config]()
	for i := range typ.NumField() {
		if tag := typ.Field(i).Tag; tag != "" {
			t.Errorf("field %s has tag %q", typ.Field(i).Name, tag)
		}
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data, labels := syntheticDataset(1, 50, 3)
	tr := mustTree[string](t, DefaultConfig(), 1)
	if err := tr.Build(ctx, data, labels, AllFeatures(3)); !errors.Is(err, xerrors.ErrBuildCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if tr.Root() != nil {
		t.Error("canceled build must not publish a root")
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	data, labels := syntheticDataset(8, 60, 4)
	dataCopy := make([][]int, len(data))
	for i := range data {
		dataCopy[i] = slices.Clone(data[i])
	}
	labelsCopy := slices.Clone(labels)
	features := []int{3, 1, 0}

	tr := mustTree[string](t, Config{TournamentSize: 2, MaxDepth: Unbounded}, 4)
	if err := tr.Build(context.Background(), data, labels, features); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(data, dataCopy) || !reflect.DeepEqual(labels, labelsCopy) {
		t.Fatal("Build mutated its input")
	}
	if !slices.Equal(features, []int{3, 1, 0}) {
		t.Fatal("Build mutated the feature slice")
	}
}

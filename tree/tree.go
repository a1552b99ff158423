// Package tree 实现基于锦标赛特征选择的分类决策树，适用于已离散化的类别特征。
package tree

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/xerrors"
)

// Unbounded 表示不限制树深度。
const Unbounded = -1

const (
	defaultMaxDepth       = 5
	defaultTournamentSize = 2
)

// Config 单棵树的超参数，构建后不可变。
type Config struct {
	Criterion      CriterionKind
	TournamentSize int
	MaxDepth       int
}

// DefaultConfig 返回默认超参数：信息增益、锦标赛规模 2、最大深度 5。
func DefaultConfig() Config {
	return Config{
		Criterion:      CriterionInformationGain,
		TournamentSize: defaultTournamentSize,
		MaxDepth:       defaultMaxDepth,
	}
}

// Validate 校验超参数。
func (c Config) Validate() error {
	if c.TournamentSize < 1 {
		return xerrors.ErrConfiguration.WithDetail("tournament size must be >= 1, got %d", c.TournamentSize)
	}
	if c.MaxDepth < Unbounded {
		return xerrors.ErrConfiguration.WithDetail("max depth must be >= 0 or Unbounded, got %d", c.MaxDepth)
	}
	return nil
}

// Tree 一棵训练完成后只读的决策树，可被多个 goroutine 并发预测。
type Tree[L comparable] struct {
	criterion Criterion[L]
	root      *Node[L]
	rng       *rand.Rand
	logger    *logging.Logger
	features  []int
	cfg       Config
	columns   int
	mu        sync.RWMutex
}

// Option 配置 Tree。
type Option func(*options)

type options struct {
	source rand.Source
	logger *logging.Logger
}

// WithSource 指定锦标赛抽样使用的随机源，固定种子可复现建树结果。
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithLogger 注入日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New 创建一棵尚未训练的树。
func New[L comparable](cfg Config, opts ...Option) (*Tree[L], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	criterion, err := NewCriterion[L](cfg.Criterion)
	if err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.source == nil {
		//nolint:gosec // 抽样不需要加密安全随机数。
		o.source = rand.NewPCG(uint64(time.Now().UnixNano()), 0)
	}

	return &Tree[L]{
		cfg:       cfg,
		criterion: criterion,
		rng:       rand.New(o.source),
		logger:    logging.Component(o.logger, "tree"),
	}, nil
}

// Build 在 data/labels 上训练，候选特征限定为 features。
// data 与 labels 不会被修改；失败时树保持原状态。
func (t *Tree[L]) Build(ctx context.Context, data [][]int, labels []L, features []int) error {
	columns, err := ValidateDataset(data, labels)
	if err != nil {
		return err
	}
	for _, f := range features {
		if f < 0 || f >= columns {
			return xerrors.ErrConfiguration.WithDetail("feature index %d out of range [0, %d)", f, columns)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := &builder[L]{
		ctx:            ctx,
		criterion:      t.criterion,
		rng:            t.rng,
		tournamentSize: t.cfg.TournamentSize,
		bounded:        t.cfg.MaxDepth != Unbounded,
	}
	root, err := b.build(data, labels, slices.Clone(features), t.cfg.MaxDepth)
	if err != nil {
		return err
	}

	t.root = root
	t.features = slices.Clone(features)
	t.columns = columns
	t.logger.DebugContext(ctx, "tree built",
		"rows", len(data), "features", len(features), "nodes", b.nodes, "depth", root.Depth())
	return nil
}

// Predict 预测单个样本。row 长度必须等于训练数据的列数。
func (t *Tree[L]) Predict(row []int) (L, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var zero L
	if t.root == nil {
		return zero, xerrors.ErrNotBuilt
	}
	if len(row) != t.columns {
		return zero, xerrors.ErrPredictionShape.WithDetail("expected %d features, got %d", t.columns, len(row))
	}
	return t.root.Predict(row), nil
}

// Root 返回根节点，未训练时为 nil。
func (t *Tree[L]) Root() *Node[L] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Features 返回训练时的候选特征集合。
func (t *Tree[L]) Features() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.features)
}

// Columns 返回训练数据的列数。
func (t *Tree[L]) Columns() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns
}

// Config 返回超参数。
func (t *Tree[L]) Config() Config {
	return t.cfg
}

// ValidateDataset 检查矩阵非空、列数一致且与标签数相同，返回列数。
func ValidateDataset[L comparable](data [][]int, labels []L) (int, error) {
	if len(data) == 0 {
		return 0, xerrors.ErrEmptyDataset.WithDetail("no rows")
	}
	if len(data) != len(labels) {
		return 0, xerrors.ErrDatasetShape.WithDetail("%d rows but %d labels", len(data), len(labels))
	}
	columns := len(data[0])
	if columns == 0 {
		return 0, xerrors.ErrEmptyDataset.WithDetail("no features")
	}
	for i, row := range data {
		if len(row) != columns {
			return 0, xerrors.ErrDatasetShape.WithDetail("row %d has %d features, expected %d", i, len(row), columns)
		}
	}
	return columns, nil
}

// AllFeatures 返回 [0, n) 的全部特征下标。
func AllFeatures(n int) []int {
	features := make([]int, n)
	for i := range features {
		features[i] = i
	}
	return features
}

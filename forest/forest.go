// Package forest 实现锦标赛森林：对每棵树做行自助采样与特征子采样，
// 交给 tree 包以锦标赛规则建树，预测时多数投票。
package forest

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/tracing"
	"github.com/wyfcoding/tforest/tree"
	"github.com/wyfcoding/tforest/xerrors"
	"golang.org/x/sync/errgroup"
)

// Config 森林超参数。构造 Forest 时复制，之后不可变。
type Config struct {
	Criterion      tree.CriterionKind
	SampleRatio    float64 // 每棵树的行采样比例，(0, 1]
	FeatureRatio   float64 // 每棵树的特征采样比例，(0, 1]
	Seed           uint64  // 0 表示使用时间戳生成种子
	NumTrees       int
	MaxDepth       int // tree.Unbounded 表示不限深度
	TournamentSize int
	Workers        int // 并发建树数，0 表示 GOMAXPROCS
}

// DefaultConfig 返回默认超参数。
func DefaultConfig() Config {
	tc := tree.DefaultConfig()
	return Config{
		NumTrees:       50,
		SampleRatio:    1.0,
		FeatureRatio:   0.5,
		MaxDepth:       tc.MaxDepth,
		TournamentSize: tc.TournamentSize,
		Criterion:      tc.Criterion,
	}
}

// FromConfig 将配置文件中的森林参数转换为 Config。
func FromConfig(c config.ForestConfig) Config {
	return Config{
		NumTrees:       c.NumTrees,
		SampleRatio:    c.SampleRatio,
		FeatureRatio:   c.FeatureRatio,
		MaxDepth:       c.MaxDepth,
		TournamentSize: c.TournamentSize,
		Criterion:      tree.CriterionKind(c.Criterion),
		Seed:           c.Seed,
		Workers:        c.Workers,
	}
}

// Validate 在任何训练工作开始前校验超参数。
func (c Config) Validate() error {
	switch {
	case c.NumTrees < 1:
		return xerrors.ErrConfiguration.WithDetail("num_trees must be >= 1, got %d", c.NumTrees)
	case !(c.SampleRatio > 0 && c.SampleRatio <= 1):
		return xerrors.ErrConfiguration.WithDetail("sample_ratio must be in (0, 1], got %v", c.SampleRatio)
	case !(c.FeatureRatio > 0 && c.FeatureRatio <= 1):
		return xerrors.ErrConfiguration.WithDetail("feature_ratio must be in (0, 1], got %v", c.FeatureRatio)
	case c.Workers < 0:
		return xerrors.ErrConfiguration.WithDetail("workers must be >= 0, got %d", c.Workers)
	}
	if err := c.treeConfig().Validate(); err != nil {
		return err
	}
	if _, err := tree.NewCriterion[int](c.Criterion); err != nil {
		return err
	}
	return nil
}

func (c Config) treeConfig() tree.Config {
	return tree.Config{
		Criterion:      c.Criterion,
		TournamentSize: c.TournamentSize,
		MaxDepth:       c.MaxDepth,
	}
}

// Forest 锦标赛森林。Build 成功后恰好包含 NumTrees 棵树；
// 失败或取消时保留之前的状态。
type Forest[L comparable] struct {
	logger  *logging.Logger
	metrics *metrics.ForestMetrics
	trees   []*tree.Tree[L]
	cfg     Config
	seed    uint64
	columns int
	mu      sync.RWMutex
}

// Option 配置 Forest。
type Option func(*options)

type options struct {
	logger  *logging.Logger
	metrics *metrics.ForestMetrics
}

// WithLogger 注入日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics 注入指标采集器。
func WithMetrics(m *metrics.ForestMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New 校验超参数并创建一个空森林。
func New[L comparable](cfg Config, opts ...Option) (*Forest[L], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Forest[L]{
		cfg:     cfg,
		seed:    seed,
		logger:  logging.Component(o.logger, "forest"),
		metrics: o.metrics,
	}, nil
}

// Build 训练森林。每棵树使用由 (seed, 树序号) 派生的独立随机流，
// 因此固定种子下结果与并发度、调度顺序无关。
// 任一棵树失败或 ctx 被取消时，整次训练失败且不发布任何树。
func (f *Forest[L]) Build(ctx context.Context, data [][]int, labels []L) (err error) {
	ctx, span := tracing.StartSpan(ctx, "forest.Build")
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	defer func() {
		f.observeBuild(start, err)
	}()

	columns, err := tree.ValidateDataset(data, labels)
	if err != nil {
		return err
	}
	rowSample, featureSample, err := sampleSizes(f.cfg, len(data), columns)
	if err != nil {
		return err
	}

	tracing.AddTag(ctx, "forest.trees", f.cfg.NumTrees)
	tracing.AddTag(ctx, "forest.rows", len(data))
	tracing.AddTag(ctx, "forest.seed", f.seed)
	f.logger.InfoContext(ctx, "forest build started",
		"trees", f.cfg.NumTrees, "rows", len(data), "columns", columns,
		"row_sample", rowSample, "feature_sample", featureSample,
		"criterion", string(f.cfg.Criterion), "seed", f.seed)

	trees := make([]*tree.Tree[L], f.cfg.NumTrees)
	p := pool.New().
		WithMaxGoroutines(f.workers()).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i := range trees {
		p.Go(func(ctx context.Context) error {
			t, err := f.growTree(ctx, i, data, labels, rowSample, featureSample)
			if err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		f.logger.WarnContext(ctx, "forest build abandoned", "error", err)
		return err
	}

	f.mu.Lock()
	f.trees = trees
	f.columns = columns
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "forest build finished", "trees", len(trees), "duration", time.Since(start))
	return nil
}

func (f *Forest[L]) growTree(ctx context.Context, idx int, data [][]int, labels []L, rowSample, featureSample int) (*tree.Tree[L], error) {
	ctx, span := tracing.StartSpan(ctx, "forest.growTree")
	var err error
	defer func() { tracing.End(span, err) }()

	src := rand.NewPCG(f.seed, uint64(idx))
	r := rand.New(src)
	rows, subset := bootstrap(r, data, labels, rowSample)
	features := subsampleFeatures(r, len(data[0]), featureSample)

	t, err := tree.New[L](f.cfg.treeConfig(), tree.WithSource(src), tree.WithLogger(f.logger))
	if err != nil {
		return nil, err
	}
	if err = t.Build(ctx, rows, subset, features); err != nil {
		return nil, err
	}

	if f.metrics != nil {
		criterion := string(f.cfg.Criterion)
		root := t.Root()
		f.metrics.TreesBuilt.WithLabelValues(criterion).Inc()
		f.metrics.TreeDepth.WithLabelValues(criterion).Observe(float64(root.Depth()))
		f.metrics.TreeLeaves.WithLabelValues(criterion).Observe(float64(root.Leaves()))
	}
	return t, nil
}

func (f *Forest[L]) observeBuild(start time.Time, err error) {
	if f.metrics == nil {
		return
	}
	criterion := string(f.cfg.Criterion)
	status := "ok"
	if err != nil {
		status = "error"
	}
	f.metrics.BuildsTotal.WithLabelValues(criterion, status).Inc()
	f.metrics.BuildDuration.WithLabelValues(criterion).Observe(time.Since(start).Seconds())
}

// workers 是建树并发度，不超过树的数量。
func (f *Forest[L]) workers() int {
	return max(1, min(f.parallelism(), f.cfg.NumTrees))
}

// batchWorkers 是批量预测并发度，只受行数限制。
func (f *Forest[L]) batchWorkers(rows int) int {
	return max(1, min(f.parallelism(), rows))
}

func (f *Forest[L]) parallelism() int {
	if f.cfg.Workers > 0 {
		return f.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Predict 让每棵树对 row 投票并返回得票最多的标签，平票时取最先出现的标签。
func (f *Forest[L]) Predict(row []int) (label L, err error) {
	defer func() { f.observePrediction(err) }()

	f.mu.RLock()
	trees, columns := f.trees, f.columns
	f.mu.RUnlock()

	if len(trees) == 0 {
		return label, xerrors.ErrNotBuilt
	}
	if len(row) != columns {
		return label, xerrors.ErrPredictionShape.WithDetail("expected %d features, got %d", columns, len(row))
	}

	votes := make([]L, len(trees))
	for i, t := range trees {
		if votes[i], err = t.Predict(row); err != nil {
			return label, err
		}
	}
	label, _ = Plurality(votes)
	return label, nil
}

func (f *Forest[L]) observePrediction(err error) {
	if f.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	f.metrics.Predictions.WithLabelValues(status).Inc()
}

// PredictBatch 并发预测多行，结果与输入顺序一致；任一行失败则返回该错误。
// ctx 被取消或超时分别返回 ErrPredictCanceled、ErrPredictTimeout。
func (f *Forest[L]) PredictBatch(ctx context.Context, rows [][]int) ([]L, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	out := make([]L, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.batchWorkers(len(rows)))
	for i, row := range rows {
		g.Go(func() error {
			if gctx.Err() != nil {
				// 组内失败也会取消 gctx，此时以调用方 ctx 为准。
				if err := ctx.Err(); err != nil {
					return contextError(err)
				}
				return nil
			}
			label, err := f.Predict(row)
			if err != nil {
				return xerrors.Wrap(err, xerrors.ErrInvalidArg, "predict batch").WithContext("row", i)
			}
			out[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func contextError(err error) *xerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return xerrors.ErrPredictTimeout.WithCause(err)
	}
	return xerrors.ErrPredictCanceled.WithCause(err)
}

// Trees 返回已训练的树，未训练时为空。
func (f *Forest[L]) Trees() []*tree.Tree[L] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.trees)
}

// Len 返回树的数量。
func (f *Forest[L]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.trees)
}

// Seed 返回实际使用的随机种子，用于复现训练结果。
func (f *Forest[L]) Seed() uint64 {
	return f.seed
}

// Config 返回超参数。
func (f *Forest[L]) Config() Config {
	return f.cfg
}

// Columns 返回训练数据的列数，未训练时为 0。
func (f *Forest[L]) Columns() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.columns
}

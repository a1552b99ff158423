package metrics

import "github.com/prometheus/client_golang/prometheus"

// ForestMetrics 训练与预测相关指标。
type ForestMetrics struct {
	BuildsTotal   *prometheus.CounterVec   // 森林训练次数 (criterion, status)
	BuildDuration *prometheus.HistogramVec // 森林训练耗时 (criterion)
	TreesBuilt    *prometheus.CounterVec   // 成功构建的单棵树数量 (criterion)
	TreeDepth     *prometheus.HistogramVec // 单棵树深度分布
	TreeLeaves    *prometheus.HistogramVec // 单棵树叶子数分布
	Predictions   *prometheus.CounterVec   // 预测次数 (status)
}

// NewForestMetrics 在 m 上注册森林指标，m 为 nil 时返回 nil。
func NewForestMetrics(m *Metrics) *ForestMetrics {
	if m == nil {
		return nil
	}
	return &ForestMetrics{
		BuildsTotal: m.NewCounterVec(&prometheus.CounterOpts{
			Namespace: "tforest",
			Name:      "builds_total",
			Help:      "Forest build attempts",
		}, []string{"criterion", "status"}),
		BuildDuration: m.NewHistogramVec(&prometheus.HistogramOpts{
			Namespace: "tforest",
			Name:      "build_duration_seconds",
			Help:      "Forest build latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"criterion"}),
		TreesBuilt: m.NewCounterVec(&prometheus.CounterOpts{
			Namespace: "tforest",
			Name:      "trees_built_total",
			Help:      "Individual trees grown",
		}, []string{"criterion"}),
		TreeDepth: m.NewHistogramVec(&prometheus.HistogramOpts{
			Namespace: "tforest",
			Name:      "tree_depth",
			Help:      "Depth of grown trees",
			Buckets:   prometheus.LinearBuckets(0, 1, 16),
		}, []string{"criterion"}),
		TreeLeaves: m.NewHistogramVec(&prometheus.HistogramOpts{
			Namespace: "tforest",
			Name:      "tree_leaves",
			Help:      "Leaf count of grown trees",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"criterion"}),
		Predictions: m.NewCounterVec(&prometheus.CounterOpts{
			Namespace: "tforest",
			Name:      "predictions_total",
			Help:      "Forest predictions served",
		}, []string{"status"}),
	}
}

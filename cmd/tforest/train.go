package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/tforest/dataset"
	"github.com/wyfcoding/tforest/forest"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/server"
	"github.com/wyfcoding/tforest/tree"
)

// forestFlags 命令行覆盖的超参数，未设置的沿用配置文件.
type forestFlags struct {
	trees     int
	seed      uint64
	criterion string
	maxDepth  int
}

func (ff *forestFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&ff.trees, "trees", "n", 0, "number of trees (overrides forest.num_trees)")
	cmd.Flags().Uint64VarP(&ff.seed, "seed", "s", 0, "random seed, 0 picks one from the clock (overrides forest.seed)")
	cmd.Flags().StringVar(&ff.criterion, "criterion", "", "split criterion: information_gain, gini_gain or gain_ratio")
	cmd.Flags().IntVar(&ff.maxDepth, "max-depth", 0, "maximum tree depth, -1 for unbounded (overrides forest.max_depth)")
}

func (ff *forestFlags) apply(cmd *cobra.Command, cfg *forest.Config) {
	if cmd.Flags().Changed("trees") {
		cfg.NumTrees = ff.trees
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = ff.seed
	}
	if cmd.Flags().Changed("criterion") {
		cfg.Criterion = tree.CriterionKind(ff.criterion)
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.MaxDepth = ff.maxDepth
	}
}

func trainCmd(rc *rootCmdConfig) *cobra.Command {
	ff := &forestFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a forest and report its accuracy on the held-out split",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := rc.setup(ctx); err != nil {
				return err
			}
			defer rc.close()

			model, report, err := trainModel(ctx, rc, func(cfg *forest.Config) { ff.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), model, report)
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

// trainModel 加载数据集、切分、训练并在留出集上评估，留出集为空时 report 为 nil.
func trainModel(ctx context.Context, rc *rootCmdConfig, override func(*forest.Config)) (*server.Model, *forest.Report[string], error) {
	conf := rc.boot.Config
	logger := rc.boot.Logger

	loaded, err := dataset.Open(ctx, conf, logger, rc.boot.Metrics)
	if err != nil {
		return nil, nil, err
	}
	enc, train, test, err := dataset.Prepare(loaded, conf.Dataset.TestRatio, conf.Dataset.SplitSeed)
	if err != nil {
		return nil, nil, err
	}
	logger.InfoContext(ctx, "dataset prepared",
		"train_rows", train.Len(), "test_rows", test.Len(), "features", len(enc.FeatureNames()))

	cfg := forest.FromConfig(conf.Forest)
	if override != nil {
		override(&cfg)
	}
	f, err := forest.New[string](cfg,
		forest.WithLogger(logger),
		forest.WithMetrics(metrics.NewForestMetrics(rc.boot.Metrics)),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := f.Build(ctx, train.Rows, train.Labels); err != nil {
		return nil, nil, err
	}

	model := &server.Model{Forest: f, Encoder: enc}
	if test.Len() == 0 {
		return model, nil, nil
	}
	report, err := forest.Evaluate(ctx, f, test.Rows, test.Labels)
	if err != nil {
		return nil, nil, err
	}
	model.Accuracy = report.Accuracy
	logger.InfoContext(ctx, "forest evaluated", "accuracy", report.Accuracy, "correct", report.Correct, "total", report.Total)
	return model, report, nil
}

func printSummary(w io.Writer, model *server.Model, report *forest.Report[string]) {
	cfg := model.Forest.Config()
	fmt.Fprintf(w, "trees: %d  criterion: %s  seed: %d\n", model.Forest.Len(), cfg.Criterion, model.Forest.Seed())
	if report == nil {
		fmt.Fprintln(w, "no held-out rows, accuracy not measured")
		return
	}
	fmt.Fprintf(w, "accuracy: %.4f (%d/%d)\n", report.Accuracy, report.Correct, report.Total)

	var labels []string
	for want, row := range report.Confusion {
		if !slices.Contains(labels, want) {
			labels = append(labels, want)
		}
		for got := range row {
			if !slices.Contains(labels, got) {
				labels = append(labels, got)
			}
		}
	}
	slices.Sort(labels)

	fmt.Fprintf(w, "confusion (rows: actual, columns: predicted)\n%-10s", "")
	for _, l := range labels {
		fmt.Fprintf(w, "%10s", l)
	}
	fmt.Fprintln(w)
	for _, want := range labels {
		fmt.Fprintf(w, "%-10s%s\n", want, confusionRow(report.Confusion[want], labels))
	}
}

func confusionRow(row map[string]int, labels []string) string {
	var b strings.Builder
	for _, got := range labels {
		fmt.Fprintf(&b, "%10d", row[got])
	}
	return b.String()
}

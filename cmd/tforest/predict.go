package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/tforest/forest"
)

func predictCmd(rc *rootCmdConfig) *cobra.Command {
	ff := &forestFlags{}
	var features map[string]string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Train a forest and predict the label of one record",
		Long:  `Train a forest from the configured dataset and predict the label of a single record given as --feature name=value pairs; values never seen in training fall back to the node majority`,
		Example: `  tforest predict -c configs/tforest.toml -f odor=n -f spore-print-color=k ...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(features) == 0 {
				return fmt.Errorf("required feature flag was not set")
			}
			ctx := cmd.Context()
			if err := rc.setup(ctx); err != nil {
				return err
			}
			defer rc.close()

			model, _, err := trainModel(ctx, rc, func(cfg *forest.Config) { ff.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			row, err := model.Encoder.EncodeNamed(features)
			if err != nil {
				return err
			}
			label, err := model.Forest.Predict(row)
			if err != nil {
				return err
			}
			cmd.Println(label)
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringToStringVarP(&features, "feature", "f", nil, "feature value as name=value, repeatable")
	return cmd
}

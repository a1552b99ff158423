// tforest 训练锦标赛森林，评估准确率，并可作为 HTTP 预测服务运行。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/tforest/bootstrap"
)

const serviceName = "tforest"

// version 由构建时 -ldflags "-X main.version=..." 注入.
var version = "0.1.0"

type rootCmdConfig struct {
	configPath string
	boot       *bootstrap.Bootstrapper
}

func main() {
	if err := cliParser().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rc := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "tforest grows tournament forests over categorical data",
		Long:          `Train a forest of tournament-selected decision trees on categorical data, measure its accuracy on a held-out split and serve predictions over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&rc.configPath, "config", "c", "", "path to a TOML config file (defaults and TFOREST_* env vars otherwise)")
	rootCmd.AddCommand(versionCmd(), trainCmd(rc), predictCmd(rc), serveCmd(rc))
	return rootCmd
}

// setup 在需要基础设施的子命令中按配置初始化.
func (rc *rootCmdConfig) setup(ctx context.Context) error {
	rc.boot = bootstrap.New(serviceName, version)
	return rc.boot.Initialize(ctx, rc.configPath)
}

func (rc *rootCmdConfig) close() {
	if rc.boot != nil {
		rc.boot.Close()
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tforest",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s v%s\n", serviceName, version)
		},
	}
}

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/wyfcoding/tforest/app"
	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/forest"
	"github.com/wyfcoding/tforest/server"
)

func serveCmd(rc *rootCmdConfig) *cobra.Command {
	ff := &forestFlags{}
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train a forest and serve predictions over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := rc.setup(ctx); err != nil {
				return err
			}
			defer rc.close()

			conf := rc.boot.Config
			if conf.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			if cmd.Flags().Changed("addr") {
				conf.Server.Addr = addr
			}

			model, _, err := trainModel(ctx, rc, func(cfg *forest.Config) { ff.apply(cmd, cfg) })
			if err != nil {
				return err
			}

			api := server.NewAPI(rc.boot.Logger)
			api.SetModel(model)
			router := server.NewRouter(conf.Server, serviceName, api, rc.boot.Logger, rc.boot.Metrics)

			// 热更新只调整日志级别，已发布的模型保持不变.
			config.RegisterReloadHook(func(next *config.Config) {
				rc.boot.Logger.Info("config reloaded", "log_level", next.Log.Level)
			})

			return app.New(serviceName, rc.boot.Logger.Logger,
				app.WithServer(server.NewGinServer(router, conf.Server.Addr, rc.boot.Logger.Logger)),
			).Run(ctx)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// Package bootstrap 按配置初始化日志、指标与链路追踪。
package bootstrap

import (
	"context"
	"fmt"

	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/idgen"
	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/tracing"
)

// Bootstrapper 持有初始化后的基础设施。
type Bootstrapper struct {
	ServiceName string
	Version     string
	Config      *config.Config
	Logger      *logging.Logger
	Metrics     *metrics.Metrics

	cleanups []func()
}

// New 创建一个新的引导器实例
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{ServiceName: serviceName, Version: version}
}

// Initialize 加载配置（configPath 为空时只用默认值与环境变量），
// 再依次初始化日志、指标与追踪。配置文件存在时开启热更新。
func (b *Bootstrapper) Initialize(ctx context.Context, configPath string) error {
	conf := new(config.Config)
	if err := config.Load(configPath, conf); err != nil {
		return err
	}
	if conf.Version == "" || conf.Version == "dev" {
		conf.Version = b.Version
	}
	b.Config = conf

	logging.InitLogger(logging.Config{
		Service:    b.ServiceName,
		Module:     "main",
		Level:      conf.Log.Level,
		Format:     conf.Log.Format,
		File:       conf.Log.File,
		MaxSize:    conf.Log.MaxSize,
		MaxBackups: conf.Log.MaxBackups,
		MaxAge:     conf.Log.MaxAge,
		Compress:   conf.Log.Compress,
	})
	b.Logger = logging.Default()
	config.PrintWithMask(conf)

	if err := idgen.Init(conf.Server.MachineID); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	b.Metrics = metrics.NewMetrics(b.ServiceName)
	b.Metrics.RegisterBuildInfo(b.Version)
	if conf.Metrics.Enabled && conf.Metrics.Addr != "" {
		b.cleanups = append(b.cleanups, b.Metrics.ExposeHTTP(conf.Metrics.Addr))
		b.Logger.Info("metrics endpoint exposed", "addr", conf.Metrics.Addr)
	}

	b.cleanups = append(b.cleanups, b.SetupTracing(ctx, conf.Tracing))

	if configPath != "" {
		config.Watch()
	}
	return nil
}

// SetupTracing 初始化 OpenTelemetry 追踪器，返回关闭函数。
func (b *Bootstrapper) SetupTracing(ctx context.Context, cfg config.TracingConfig) func() {
	if cfg.ServiceName == "" {
		cfg.ServiceName = b.ServiceName
	}
	shutdown, err := tracing.InitTracer(ctx, cfg)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	}
}

// Close 逆序释放初始化的资源。
func (b *Bootstrapper) Close() {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil
}

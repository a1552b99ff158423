// Package app 管理进程内服务的启动、信号处理与资源清理。
package app

import "github.com/wyfcoding/tforest/server"

// Option 配置应用程序。
type Option func(*options)

type options struct {
	servers  []server.Server
	cleanups []func()
}

// WithServer 添加随应用启动、随应用优雅关闭的服务。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 添加关闭时执行的清理函数，按注册的逆序执行。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}

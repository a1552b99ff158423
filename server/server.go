package server

import "context"

// Server 统一的服务生命周期契约。
type Server interface {
	// Start 阻塞运行直到 ctx 取消或出错。
	Start(ctx context.Context) error
	// Stop 优雅停止。
	Stop(ctx context.Context) error
}

var _ Server = (*GinServer)(nil)

// Package retry 提供指数退避重试.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Func 可被重试执行的函数.
type Func func() error

// Config 重试策略参数.
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	MaxRetries     int
}

// DefaultConfig 返回默认重试配置.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// Do 对所有错误重试.
func Do(ctx context.Context, fn Func, cfg Config) error {
	return If(ctx, fn, func(error) bool { return true }, cfg)
}

// If 仅在 shouldRetry 返回 true 时重试，MaxRetries 为 0 时只执行一次.
func If(ctx context.Context, fn Func, shouldRetry func(error) bool, cfg Config) error {
	var lastErr error
	backoff := cfg.InitialBackoff
	attempts := max(cfg.MaxRetries, 0)

	tries := 0
	for i := 0; i <= attempts; i++ {
		tries++
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if i == attempts || !shouldRetry(lastErr) {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		next := float64(backoff) * max(cfg.Multiplier, 1)
		if cfg.Jitter > 0 {
			//nolint:gosec // 退避抖动不需要加密随机数.
			next += (rand.Float64()*2 - 1) * cfg.Jitter * next
		}
		backoff = time.Duration(next)
		if cfg.MaxBackoff > 0 {
			backoff = min(backoff, cfg.MaxBackoff)
		}
	}

	if tries == 1 {
		return lastErr
	}
	return fmt.Errorf("retry failed after %d attempts: %w", tries, lastErr)
}

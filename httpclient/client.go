// Package httpclient 提供具备重试、熔断与指标能力的 HTTP 下载客户端.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/wyfcoding/tforest/breaker"
	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/retry"
	"github.com/wyfcoding/tforest/tracing"
)

const (
	defaultTimeout = 30 * time.Second
	// 下载体积上限，防止异常响应占满内存.
	maxBodySize = 256 << 20
)

// StatusError 表示服务端返回了非 2xx 状态码.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Retryable 仅 5xx 与 429 值得重试.
func (e *StatusError) Retryable() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// Client 封装标准 http.Client.
type Client struct {
	client          *http.Client
	breaker         *breaker.Breaker
	logger          *logging.Logger
	retryCfg        retry.Config
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewClient 根据配置创建客户端，m 为 nil 时不采集指标.
func NewClient(cfg config.HTTPClientConfig, logger *logging.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.RetryMax
	if cfg.RetryInitial > 0 {
		retryCfg.InitialBackoff = cfg.RetryInitial
	}
	if cfg.RetryMaxBackoff > 0 {
		retryCfg.MaxBackoff = cfg.RetryMaxBackoff
	}

	c := &Client{
		client:   &http.Client{Timeout: timeout},
		breaker:  breaker.NewBreaker(breaker.Settings{Name: "dataset-download", Config: cfg.Breaker}, m),
		logger:   logging.Component(logger, "httpclient"),
		retryCfg: retryCfg,
	}

	if m != nil {
		c.requestsTotal = m.NewCounterVec(&prometheus.CounterOpts{
			Namespace: "tforest",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "HTTP client request count",
		}, []string{"host", "status"})
		c.requestDuration = m.NewHistogramVec(&prometheus.HistogramOpts{
			Namespace: "tforest",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "HTTP client request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"})
	}
	return c
}

// Get 下载 url 的完整响应体，对网络错误与 5xx 按退避策略重试.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0
	err := retry.If(ctx, func() error {
		attempt++
		data, err := breaker.ExecuteTyped(c.breaker, func() ([]byte, error) {
			return c.getOnce(ctx, url)
		})
		if err != nil {
			c.logger.WarnContext(ctx, "http get failed", "url", url, "attempt", attempt, "error", err)
			return err
		}
		body = data
		return nil
	}, shouldRetry, c.retryCfg)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) getOnce(ctx context.Context, url string) (data []byte, err error) {
	ctx, span := tracing.StartSpan(ctx, "HTTPClient.GET")
	defer func() { tracing.End(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	tracing.AddTag(ctx, "http.url", url)

	start := time.Now()
	resp, err := c.client.Do(req)
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.record(req.URL.Host, status, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

func (c *Client) record(host, status string, d time.Duration) {
	if c.requestsTotal != nil {
		c.requestsTotal.WithLabelValues(host, status).Inc()
	}
	if c.requestDuration != nil {
		c.requestDuration.WithLabelValues(host).Observe(d.Seconds())
	}
}

func shouldRetry(err error) bool {
	if errors.Is(err, breaker.ErrServiceUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

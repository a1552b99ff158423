// Package config 提供统一的配置加载、校验与热更新能力。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wyfcoding/tforest/logging"
)

// Config 全局顶级配置结构.
type Config struct {
	Version    string           `mapstructure:"version"    toml:"version"`
	Forest     ForestConfig     `mapstructure:"forest"     toml:"forest"`
	Dataset    DatasetConfig    `mapstructure:"dataset"    toml:"dataset"`
	Log        LogConfig        `mapstructure:"log"        toml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    toml:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"    toml:"tracing"`
	Server     ServerConfig     `mapstructure:"server"     toml:"server"`
	HTTPClient HTTPClientConfig `mapstructure:"httpclient" toml:"httpclient"`
}

// ForestConfig 锦标赛森林超参数，构建开始前即被复制，运行期间不会变化.
type ForestConfig struct {
	Criterion      string  `mapstructure:"criterion"       toml:"criterion"       validate:"oneof=information_gain gini_gain gain_ratio"`
	SampleRatio    float64 `mapstructure:"sample_ratio"    toml:"sample_ratio"    validate:"gt=0,lte=1"`
	FeatureRatio   float64 `mapstructure:"feature_ratio"   toml:"feature_ratio"   validate:"gt=0,lte=1"`
	Seed           uint64  `mapstructure:"seed"            toml:"seed"`
	NumTrees       int     `mapstructure:"num_trees"       toml:"num_trees"       validate:"min=1"`
	MaxDepth       int     `mapstructure:"max_depth"       toml:"max_depth"       validate:"min=-1"`
	TournamentSize int     `mapstructure:"tournament_size" toml:"tournament_size" validate:"min=1"`
	Workers        int     `mapstructure:"workers"         toml:"workers"         validate:"min=0"`
}

// DatasetConfig 定义训练数据来源.
type DatasetConfig struct {
	Source      string       `mapstructure:"source"       toml:"source"       validate:"oneof=csv uci object"`
	Path        string       `mapstructure:"path"         toml:"path"         validate:"required_if=Source csv"`
	LabelColumn string       `mapstructure:"label_column" toml:"label_column"`
	UCI         UCIConfig    `mapstructure:"uci"          toml:"uci"`
	Object      ObjectConfig `mapstructure:"object"       toml:"object"`
	TestRatio   float64      `mapstructure:"test_ratio"   toml:"test_ratio"   validate:"gte=0,lt=1"`
	SplitSeed   uint64       `mapstructure:"split_seed"   toml:"split_seed"`
	HasHeader   bool         `mapstructure:"has_header"   toml:"has_header"`
}

// UCIConfig 定义 UCI 机器学习库数据集参数.
type UCIConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url" validate:"omitempty,url"`
	ID      int    `mapstructure:"id"       toml:"id"       validate:"min=0"`
}

// ObjectConfig 定义 MinIO/S3 兼容对象存储中的数据集位置.
type ObjectConfig struct {
	Endpoint  string `mapstructure:"endpoint"   toml:"endpoint"`
	AccessKey string `mapstructure:"access_key" toml:"access_key"`
	SecretKey string `mapstructure:"secret_key" toml:"secret_key"`
	Bucket    string `mapstructure:"bucket"     toml:"bucket"`
	Key       string `mapstructure:"key"        toml:"key"`
	UseSSL    bool   `mapstructure:"use_ssl"    toml:"use_ssl"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format"      toml:"format"      validate:"oneof=json text"`
	File       string `mapstructure:"file"        toml:"file"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig 定义指标暴露方式.
type MetricsConfig struct {
	Addr    string `mapstructure:"addr"    toml:"addr"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 定义链路追踪导出参数.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"  validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// ServerConfig 定义预测 HTTP 服务参数.
type ServerConfig struct {
	Addr      string  `mapstructure:"addr"       toml:"addr"       validate:"required"`
	RateLimit float64 `mapstructure:"rate_limit" toml:"rate_limit" validate:"gte=0"` // 每秒请求数，0 表示不限流
	RateBurst int     `mapstructure:"rate_burst" toml:"rate_burst" validate:"gte=0"`
	// MaxBodyBytes 请求体上限，0 表示不限制.
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"  toml:"max_body_bytes"  validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" toml:"request_timeout"`
	MachineID      int64         `mapstructure:"machine_id"      toml:"machine_id"      validate:"gte=0,lte=1023"` // 雪花请求 ID 的节点号
}

// HTTPClientConfig 定义远程数据集下载的超时、重试与熔断.
type HTTPClientConfig struct {
	Timeout         time.Duration        `mapstructure:"timeout"           toml:"timeout"`
	RetryInitial    time.Duration        `mapstructure:"retry_initial"     toml:"retry_initial"`
	RetryMaxBackoff time.Duration        `mapstructure:"retry_max_backoff" toml:"retry_max_backoff"`
	RetryMax        int                  `mapstructure:"retry_max"         toml:"retry_max"`
	Breaker         CircuitBreakerConfig `mapstructure:"breaker"           toml:"breaker"`
}

// CircuitBreakerConfig 熔断器配置.
type CircuitBreakerConfig struct {
	Interval    time.Duration `mapstructure:"interval"     toml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"      toml:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests" toml:"max_requests"`
	Enabled     bool          `mapstructure:"enabled"      toml:"enabled"`
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	onReload  []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")

	v.SetDefault("forest.num_trees", 50)
	v.SetDefault("forest.sample_ratio", 1.0)
	v.SetDefault("forest.feature_ratio", 0.5)
	v.SetDefault("forest.max_depth", 5)
	v.SetDefault("forest.tournament_size", 2)
	v.SetDefault("forest.criterion", "information_gain")
	v.SetDefault("forest.seed", 0)
	v.SetDefault("forest.workers", 0)

	v.SetDefault("dataset.source", "uci")
	v.SetDefault("dataset.path", "")
	v.SetDefault("dataset.label_column", "")
	v.SetDefault("dataset.has_header", true)
	v.SetDefault("dataset.test_ratio", 0.2)
	v.SetDefault("dataset.split_seed", 1)
	v.SetDefault("dataset.uci.id", 73)
	v.SetDefault("dataset.uci.base_url", "https://archive.ics.uci.edu/api/dataset")
	v.SetDefault("dataset.object.endpoint", "")
	v.SetDefault("dataset.object.access_key", "")
	v.SetDefault("dataset.object.secret_key", "")
	v.SetDefault("dataset.object.bucket", "")
	v.SetDefault("dataset.object.key", "")
	v.SetDefault("dataset.object.use_ssl", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "tforest")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 0)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.machine_id", 0)

	v.SetDefault("httpclient.timeout", 30*time.Second)
	v.SetDefault("httpclient.retry_max", 3)
	v.SetDefault("httpclient.retry_initial", 200*time.Millisecond)
	v.SetDefault("httpclient.retry_max_backoff", 5*time.Second)
	v.SetDefault("httpclient.breaker.enabled", true)
	v.SetDefault("httpclient.breaker.max_requests", 1)
	v.SetDefault("httpclient.breaker.interval", time.Minute)
	v.SetDefault("httpclient.breaker.timeout", 30*time.Second)
}

// Load 读取 TOML 配置文件（path 为空时仅使用默认值与环境变量），
// 环境变量前缀为 TFOREST，例如 TFOREST_FOREST_NUM_TREES。
func Load(path string, conf *Config) error {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TFOREST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := Validate(conf); err != nil {
		return err
	}

	mu.Lock()
	vInstance = v
	mu.Unlock()
	return nil
}

// Validate 对配置执行结构体标签校验.
func Validate(conf *Config) error {
	if err := validator.New().Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Watch 监听配置文件变更。变更后的配置被解析到新的 Config 中并交给回调，
// 已加载的 Config 不会被原地修改；日志级别会立即生效。
func Watch() {
	mu.Lock()
	v := vInstance
	mu.Unlock()

	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name, "op", event.Op.String())
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := new(Config)
		if err := v.Unmarshal(next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		mu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()
		for _, hook := range hooks {
			hook(next)
		}
	})
	v.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.MarshalIndent(configMap, "  ", "  ")
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

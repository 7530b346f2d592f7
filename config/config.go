// Package config 提供了统一的配置加载与管理能力.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version      string             `mapstructure:"version"       toml:"version"`
	Log          LogConfig          `mapstructure:"log"           toml:"log"`
	Metrics      MetricsConfig      `mapstructure:"metrics"       toml:"metrics"`
	Tracing      TracingConfig      `mapstructure:"tracing"       toml:"tracing"`
	Engine       EngineConfig       `mapstructure:"engine"        toml:"engine"`
	Contract     ContractConfig     `mapstructure:"contract"      toml:"contract"`
	BlackScholes BlackScholesConfig `mapstructure:"black_scholes" toml:"black_scholes"`
	Heston       HestonConfig       `mapstructure:"heston"        toml:"heston"`
}

// LogConfig 定义日志输出、级别与切割策略.
// File 为空时只输出到 stdout；Console 控制写文件时是否同时输出到 stdout.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`
	Console    bool   `mapstructure:"console"     toml:"console"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig 定义 Prometheus 指标暴露参数.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Port    string `mapstructure:"port"    toml:"port"    validate:"required_if=Enabled true"`
}

// TracingConfig 定义 OpenTelemetry 追踪参数.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"  validate:"gte=0,lte=1"`
}

// EngineConfig 定义蒙特卡洛引擎的运行参数.
// Seed 为 0 时使用系统随机源，Workers 为 0 时使用 CPU 核数，Grid 是收敛与泄漏研究的步数序列.
type EngineConfig struct {
	Seed    uint64 `mapstructure:"seed"    toml:"seed"`
	Workers int    `mapstructure:"workers" toml:"workers" validate:"gte=0"`
	Paths   int    `mapstructure:"paths"   toml:"paths"   validate:"min=2"`
	Steps   int    `mapstructure:"steps"   toml:"steps"   validate:"min=1"`
	Grid    []int  `mapstructure:"grid"    toml:"grid"    validate:"dive,min=1"`
}

// ContractConfig 定义被定价的欧式期权合约.
type ContractConfig struct {
	Spot       float64 `mapstructure:"spot"        toml:"spot"        validate:"gt=0"`
	Strike     float64 `mapstructure:"strike"      toml:"strike"      validate:"gt=0"`
	Maturity   float64 `mapstructure:"maturity"    toml:"maturity"    validate:"gt=0"`
	OptionType string  `mapstructure:"option_type" toml:"option_type" validate:"oneof=CALL PUT"`
}

// BlackScholesConfig Black-Scholes 模型参数.
type BlackScholesConfig struct {
	Drift      float64 `mapstructure:"drift"      toml:"drift"`
	Volatility float64 `mapstructure:"volatility" toml:"volatility" validate:"gt=0"`
}

// HestonConfig Heston 模型参数与方差离散格式.
type HestonConfig struct {
	Drift  float64 `mapstructure:"drift"  toml:"drift"`
	Kappa  float64 `mapstructure:"kappa"  toml:"kappa"  validate:"gte=0"`
	Theta  float64 `mapstructure:"theta"  toml:"theta"  validate:"gte=0"`
	Omega  float64 `mapstructure:"omega"  toml:"omega"  validate:"gte=0"`
	Rho    float64 `mapstructure:"rho"    toml:"rho"    validate:"gte=-1,lte=1"`
	V0     float64 `mapstructure:"v0"     toml:"v0"     validate:"gte=0"`
	Scheme string  `mapstructure:"scheme" toml:"scheme" validate:"oneof=naive absorption full_truncation"`
}

// Default 返回可直接运行的默认配置：Heston 基准参数集与 Black-Scholes 参照合约。
func Default() Config {
	return Config{
		Version: "dev",
		Log:     LogConfig{Level: "info", MaxSize: 100, MaxBackups: 3, MaxAge: 7},
		Metrics: MetricsConfig{Port: "9090"},
		Tracing: TracingConfig{ServiceName: "stochvol", OTLPEndpoint: "localhost:4317", SampleRatio: 1.0},
		Engine: EngineConfig{
			Paths: 100000,
			Steps: 100,
			Grid:  []int{10, 100, 1000},
		},
		Contract:     ContractConfig{Spot: 100, Strike: 100, Maturity: 5, OptionType: "CALL"},
		BlackScholes: BlackScholesConfig{Drift: 0, Volatility: 0.2},
		Heston: HestonConfig{
			Drift:  0.05,
			Kappa:  2,
			Theta:  0.09,
			Omega:  1,
			Rho:    -0.3,
			V0:     0.09,
			Scheme: "full_truncation",
		},
	}
}

var validate = validator.New()

// Load 加载配置：默认值 < 配置文件 < APP_ 前缀环境变量。
// path 为空时跳过文件，只使用默认值与环境变量.
func Load(path string, conf *Config) error {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	}
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	return Validate(conf)
}

// Validate 按 validate 标签校验配置.
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// setDefaults 将 Default() 的每个叶子键注册为 viper 默认值，AutomaticEnv 依赖已知键才能覆盖。
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("version", d.Version)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)

	v.SetDefault("engine.seed", d.Engine.Seed)
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("engine.paths", d.Engine.Paths)
	v.SetDefault("engine.steps", d.Engine.Steps)
	v.SetDefault("engine.grid", d.Engine.Grid)

	v.SetDefault("contract.spot", d.Contract.Spot)
	v.SetDefault("contract.strike", d.Contract.Strike)
	v.SetDefault("contract.maturity", d.Contract.Maturity)
	v.SetDefault("contract.option_type", d.Contract.OptionType)

	v.SetDefault("black_scholes.drift", d.BlackScholes.Drift)
	v.SetDefault("black_scholes.volatility", d.BlackScholes.Volatility)

	v.SetDefault("heston.drift", d.Heston.Drift)
	v.SetDefault("heston.kappa", d.Heston.Kappa)
	v.SetDefault("heston.theta", d.Heston.Theta)
	v.SetDefault("heston.omega", d.Heston.Omega)
	v.SetDefault("heston.rho", d.Heston.Rho)
	v.SetDefault("heston.v0", d.Heston.V0)
	v.SetDefault("heston.scheme", d.Heston.Scheme)
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	configMap, err := Masked(conf)
	if err != nil {
		slog.Error("failed to mask config for printing", "error", err)

		return
	}

	maskedJSON, marshalErr := json.MarshalIndent(configMap, "  ", "  ")
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)

		return
	}

	slog.Info("current effective configuration", "config", string(maskedJSON))
}

// Masked 把配置转换为通用 map 并遮蔽敏感字段.
func Masked(conf any) (map[string]any, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return nil, err
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		return nil, err
	}

	mask(configMap)

	return configMap, nil
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "token", "endpoint"}

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

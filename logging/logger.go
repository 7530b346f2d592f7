// Package logging 提供了统一的结构化日志（slog）封装，支持 OpenTelemetry 追踪上下文注入与日志文件切割。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// defaultLogger 全局默认的 Logger 实例。
	defaultLogger *Logger
	once          sync.Once
)

// Config 定义日志配置
type Config struct {
	Service    string
	Module     string
	Level      string
	File       string    // 日志文件路径，为空则只输出到控制台
	Console    bool      // 配置了文件时是否同时输出到控制台
	Stream     io.Writer // 控制台输出，nil 表示 stdout
	MaxSize    int    // 每个日志文件最大尺寸 (MB)
	MaxBackups int    // 保留旧日志文件的最大个数
	MaxAge     int    // 保留旧日志文件的最大天数
	Compress   bool   // 是否压缩旧日志
}

// Logger 封装原生的 *slog.Logger，附带服务名、模块名与可动态调整的日志级别。
type Logger struct {
	*slog.Logger
	Service string
	Module  string
	level   *slog.LevelVar
}

// TraceHandler 是一个 slog.Handler 装饰器，从 context 中提取 trace_id 与 span_id 注入日志记录。
type TraceHandler struct {
	slog.Handler
}

// Handle 如果上下文中存在有效的 SpanContext，则附加追踪属性后交给被装饰的 Handler。
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值按 info 处理。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFromConfig 创建一个新的 Logger 实例。
// 配置了 File 时使用 lumberjack 进行日志切割。
func NewFromConfig(cfg Config) *Logger {
	return newLogger(cfg, nil)
}

// NewWithWriter 创建输出到指定 writer 的 Logger，主要用于测试。
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	return newLogger(cfg, w)
}

func newLogger(cfg Config, w io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}

	console := cfg.Stream
	if console == nil {
		console = os.Stdout
	}

	var handler slog.Handler
	switch {
	case w != nil:
		handler = slog.NewJSONHandler(w, opts)
	case cfg.File != "":
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
		handler = slog.NewJSONHandler(fileWriter, opts)
		if cfg.Console {
			handler = newTeeHandler(handler, slog.NewJSONHandler(console, opts))
		}
	default:
		handler = slog.NewJSONHandler(console, opts)
	}

	logger := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{
		Logger:  logger,
		Service: cfg.Service,
		Module:  cfg.Module,
		level:   level,
	}
}

// SetLevel 运行时调整日志级别。
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// InitLogger 初始化全局默认日志记录器并设置为 slog 默认实例，只生效一次。
func InitLogger(cfg Config) *Logger {
	once.Do(func() {
		defaultLogger = NewFromConfig(cfg)
		slog.SetDefault(defaultLogger.Logger)
	})
	return defaultLogger
}

// Default 返回默认日志记录器实例
func Default() *Logger {
	if defaultLogger == nil {
		return InitLogger(Config{Service: "stochvol", Module: "default", Level: "info"})
	}
	return defaultLogger
}

// Info 记录 Info 级别日志
func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(ctx, msg, args...)
}

// LogDuration 记录操作耗时
func LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		Info(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}

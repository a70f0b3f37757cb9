package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ReplaceAttrFunc 属性替换函数，返回空 Key 的 Attr 会移除该属性。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Builder 日志配置构建器。调用 Build 后不可复用。
type Builder struct {
	output      io.Writer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	trace       bool
	replaceAttr ReplaceAttrFunc
	closer      io.Closer
	onError     func(error)
	err         error
}

// New 创建构建器，默认 stderr、Info 级别、text 格式、注入 trace 字段。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
		trace:    true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if b.err == nil && w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	if b.err == nil {
		b.levelVar.Set(slog.Level(level))
	}
	return b
}

// SetLevelString 通过字符串设置日志级别，空串保持默认。
func (b *Builder) SetLevelString(s string) *Builder {
	if b.err != nil || strings.TrimSpace(s) == "" {
		return b
	}
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空串视为 text。
func (b *Builder) SetFormat(format string) *Builder {
	if b.err != nil {
		return b
	}
	switch normalized := strings.ToLower(strings.TrimSpace(format)); normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.err = fmt.Errorf("xlog: unknown format %q", format)
	}
	return b
}

// SetAddSource 是否记录源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetTrace 是否从 context 注入 trace_id/span_id，默认开启。
func (b *Builder) SetTrace(enable bool) *Builder {
	b.trace = enable
	return b
}

// RotationOption 文件轮转选项
type RotationOption func(*lumberjack.Logger)

// WithMaxSizeMB 单个文件最大大小（MB），默认 100。
func WithMaxSizeMB(n int) RotationOption {
	return func(l *lumberjack.Logger) { l.MaxSize = n }
}

// WithMaxBackups 保留的旧文件数量，默认 7。
func WithMaxBackups(n int) RotationOption {
	return func(l *lumberjack.Logger) { l.MaxBackups = n }
}

// WithMaxAgeDays 旧文件保留天数，默认 30。
func WithMaxAgeDays(n int) RotationOption {
	return func(l *lumberjack.Logger) { l.MaxAge = n }
}

// WithCompress 是否压缩旧文件，默认开启。
func WithCompress(enable bool) RotationOption {
	return func(l *lumberjack.Logger) { l.Compress = enable }
}

// SetRotation 输出到按大小轮转的文件。
func (b *Builder) SetRotation(filename string, opts ...RotationOption) *Builder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(filename) == "" {
		b.err = fmt.Errorf("xlog: empty rotation filename")
		return b
	}
	lj := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
		Compress:   true,
		LocalTime:  true,
	}
	for _, opt := range opts {
		opt(lj)
	}
	b.output = lj
	b.closer = lj
	return b
}

// SetOnError 设置 Handler 写入失败时的回调。回调同步执行，应保持轻量。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// SetReplaceAttr 设置属性替换函数，用于字段重命名或脱敏。
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// Build 构建 Logger。cleanup 关闭轮转文件，可重复调用。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:       b.levelVar,
		AddSource:   b.addSource,
		ReplaceAttr: b.replaceAttr,
	}
	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if b.trace {
		handler = &traceHandler{base: handler}
	}

	logger := &xlogger{
		handler:    handler,
		levelVar:   b.levelVar,
		onError:    b.onError,
		errorCount: new(atomic.Uint64),
		addSource:  b.addSource,
	}

	closer := b.closer
	cleanup := sync.OnceValue(func() error {
		if closer == nil {
			return nil
		}
		return closer.Close()
	})
	return logger, cleanup, nil
}

// Discard 返回丢弃所有输出的 Logger。
func Discard() LoggerWithLevel {
	logger, _, _ := New().SetOutput(io.Discard).SetTrace(false).Build()
	return logger
}

package xconf

import (
	"errors"

	"github.com/knadh/koanf/v2"
)

// Format 定义配置文件格式。
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 定义配置接口。
type Config interface {
	// Client 返回底层的 koanf 实例。
	Client() *koanf.Koanf

	// Unmarshal 将 path 处的配置反序列化到 target，path 为空时反序列化整个配置。
	// 字符串形式的 time.Duration（如 "10s"）会被自动解析。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，并发安全。从字节创建的 Config 返回 ErrNotReloadable。
	Reload() error

	// Path 返回配置文件路径，从字节创建时为空。
	Path() string

	Format() Format
}

var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")
	ErrLoadFailed        = errors.New("xconf: failed to load config")
	ErrParseFailed       = errors.New("xconf: failed to parse config")
	ErrUnmarshalFailed   = errors.New("xconf: failed to unmarshal config")
	ErrNotReloadable     = errors.New("xconf: config created from bytes cannot be reloaded")
)

// Option 定义配置选项函数类型。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

func defaultOptions() *options {
	return &options{delim: ".", tag: "koanf"}
}

// WithDelim 设置键分隔符，默认 "."。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

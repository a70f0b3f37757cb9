package xlog

import (
	"log/slog"
	"time"
)

// 常用字段名
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyLockKey   = "lock_key"
	KeyBackend   = "backend"
)

// Err 创建错误属性，nil 返回空属性（被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出如 "1.5s"。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Key 创建锁 key 属性。
func Key(key string) slog.Attr {
	return slog.String(KeyLockKey, key)
}

func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

package xetcd

import (
	"context"
	"crypto/tls"
	"time"
)

const defaultHealthCheckKey = "xetcd-health-check"

type options struct {
	ctx            context.Context
	healthCheck    bool
	healthTimeout  time.Duration
	healthCheckKey string
	tlsConfig      *tls.Config
}

func defaultOptions() *options {
	return &options{
		ctx:            context.Background(),
		healthTimeout:  10 * time.Second,
		healthCheckKey: defaultHealthCheckKey,
	}
}

// Option 客户端配置选项
type Option func(*options)

// WithContext 设置创建阶段（健康检查）使用的 context，不影响客户端生命周期。
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithHealthCheck 创建后执行一次 Get 验证连接，timeout 默认 10 秒。
//
// 凭证无效时 NewClient 直接失败。
func WithHealthCheck(enabled bool, timeout time.Duration) Option {
	return func(o *options) {
		o.healthCheck = enabled
		if timeout > 0 {
			o.healthTimeout = timeout
		}
	}
}

// WithHealthCheckKey 设置健康检查读取的 key，默认 "xetcd-health-check"。
// 账号只授权了特定前缀时，应设置为前缀内的路径。
func WithHealthCheckKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.healthCheckKey = key
		}
	}
}

// WithTLS 启用 TLS。
func WithTLS(config *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = config
	}
}

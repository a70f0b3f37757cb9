package xetcd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Client 持有原生 etcd 客户端，并发安全。
type Client struct {
	raw    *clientv3.Client
	closer io.Closer
	config *Config
	closed atomic.Bool
}

// newRawClient 创建原生客户端，测试中可替换。
var newRawClient = clientv3.New

// NewClient 创建 etcd 客户端。
//
// 错误：ErrNilConfig、ErrNoEndpoints、ErrInvalidEndpoint、连接错误、健康检查错误。
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	cfg := config.withDefaults()
	raw, err := newRawClient(clientConfig(cfg, o))
	if err != nil {
		return nil, fmt.Errorf("xetcd: create client: %w", err)
	}

	if o.healthCheck {
		ctx, cancel := context.WithTimeout(o.ctx, o.healthTimeout)
		defer cancel()
		if _, err := raw.Get(ctx, o.healthCheckKey); err != nil {
			return nil, errors.Join(fmt.Errorf("xetcd: health check failed: %w", err), raw.Close())
		}
	}

	return &Client{raw: raw, closer: raw, config: cfg}, nil
}

// clientConfig keepalive 只通过 DialOptions 设置，PermitWithoutStream 才能生效。
func clientConfig(cfg *Config, o *options) clientv3.Config {
	cc := clientv3.Config{
		Endpoints:        cfg.Endpoints,
		DialTimeout:      cfg.DialTimeout,
		Username:         cfg.Username,
		Password:         cfg.Password,
		AutoSyncInterval: cfg.AutoSyncInterval,
		RejectOldCluster: cfg.RejectOldCluster,
		DialOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.DialKeepAliveTime,
				Timeout:             cfg.DialKeepAliveTimeout,
				PermitWithoutStream: cfg.PermitWithoutStream,
			}),
		},
	}
	if o.tlsConfig != nil {
		cc.TLS = o.tlsConfig
	}
	return cc
}

// RawClient 返回原生客户端，用于事务与租约。
func (c *Client) RawClient() *clientv3.Client {
	return c.raw
}

// Config 返回填充默认值后的配置副本。
func (c *Client) Config() Config {
	return *c.config
}

// Close 关闭连接，可重复调用。
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// IsClosed 报告 Close 是否已被调用。
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

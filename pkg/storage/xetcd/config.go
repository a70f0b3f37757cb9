package xetcd

import (
	"fmt"
	"strings"
	"time"
)

// Config etcd 客户端配置，支持 JSON/YAML 反序列化。
//
// 布尔字段零值为 false，推荐从 DefaultConfig() 开始按需覆盖：
//
//	cfg := xetcd.DefaultConfig()
//	cfg.Endpoints = []string{"localhost:2379"}
//	client, err := xetcd.NewClient(cfg)
type Config struct {
	// Endpoints etcd 服务端点列表，必填，格式 "host:port"。
	Endpoints []string `json:"endpoints" yaml:"endpoints"`

	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`

	// DialTimeout 连接超时，零值时为 5 秒。
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout"`

	// DialKeepAliveTime gRPC keepalive 探测间隔，零值时为 10 秒。
	DialKeepAliveTime time.Duration `json:"dialKeepAliveTime" yaml:"dialKeepAliveTime"`

	// DialKeepAliveTimeout keepalive 探测的最大等待时间，零值时为 3 秒。
	DialKeepAliveTimeout time.Duration `json:"dialKeepAliveTimeout" yaml:"dialKeepAliveTimeout"`

	// AutoSyncInterval 定期从集群同步 endpoints 的间隔，0 表示禁用。
	AutoSyncInterval time.Duration `json:"autoSyncInterval" yaml:"autoSyncInterval"`

	// RejectOldCluster 拒绝连接版本过低的集群。
	RejectOldCluster bool `json:"rejectOldCluster" yaml:"rejectOldCluster"`

	// PermitWithoutStream 没有活跃 RPC 时也发送 keepalive。
	PermitWithoutStream bool `json:"permitWithoutStream" yaml:"permitWithoutStream"`
}

const (
	defaultDialTimeout          = 5 * time.Second
	defaultDialKeepAliveTime    = 10 * time.Second
	defaultDialKeepAliveTimeout = 3 * time.Second
)

// DefaultConfig 返回推荐配置：超时取默认值，RejectOldCluster 与
// PermitWithoutStream 为 true。
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:          defaultDialTimeout,
		DialKeepAliveTime:    defaultDialKeepAliveTime,
		DialKeepAliveTimeout: defaultDialKeepAliveTimeout,
		RejectOldCluster:     true,
		PermitWithoutStream:  true,
	}
}

// Validate 检查 endpoints 非空且均为 host:port 形式。
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	for i, ep := range c.Endpoints {
		if ep == "" {
			return fmt.Errorf("%w: endpoint[%d] is empty", ErrInvalidEndpoint, i)
		}
		if !strings.Contains(ep, ":") {
			return fmt.Errorf("%w: endpoint[%d]=%q missing port", ErrInvalidEndpoint, i, ep)
		}
	}
	return nil
}

// withDefaults 返回填充了默认超时的副本。
func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.DialKeepAliveTime <= 0 {
		cfg.DialKeepAliveTime = defaultDialKeepAliveTime
	}
	if cfg.DialKeepAliveTimeout <= 0 {
		cfg.DialKeepAliveTimeout = defaultDialKeepAliveTimeout
	}
	return &cfg
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xlock/pkg/config/xconf"
	"github.com/omeyang/xlock/pkg/observability/xlog"
	"github.com/omeyang/xlock/pkg/storage/xetcd"
	"github.com/omeyang/xlock/pkg/util/xproc"
)

const (
	backendRedis = "redis"
	backendEtcd  = "etcd"

	defaultRedisAddr    = "localhost:6379"
	defaultEtcdEndpoint = "localhost:2379"
)

// Config xlockctl 配置文件结构。
//
//	backend: redis
//	keyPrefix: "lock:"
//	redis:
//	  addr: localhost:6379
//	etcd:
//	  endpoints: ["localhost:2379"]
//	  dialTimeout: 5s
//	log:
//	  level: info
//	lock:
//	  ttl: 30s
//	  wait: 5s
type Config struct {
	Backend   string        `yaml:"backend"`
	KeyPrefix string        `yaml:"keyPrefix"`
	Timeout   time.Duration `yaml:"timeout"`
	Redis     RedisConfig   `yaml:"redis"`
	Etcd      xetcd.Config  `yaml:"etcd"`
	Log       LogConfig     `yaml:"log"`
	Lock      LockConfig    `yaml:"lock"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// LockConfig run 命令的锁参数。Renew 为 0 时取 TTL/3。
type LockConfig struct {
	TTL   time.Duration `yaml:"ttl"`
	Wait  time.Duration `yaml:"wait"`
	Poll  time.Duration `yaml:"poll"`
	Renew time.Duration `yaml:"renew"`
}

func defaultConfig() *Config {
	return &Config{
		Backend: backendRedis,
		Timeout: 10 * time.Second,
		Redis:   RedisConfig{Addr: defaultRedisAddr},
		Etcd:    *xetcd.DefaultConfig(),
		Log:     LogConfig{Level: "info", Format: "text"},
		Lock:    LockConfig{TTL: 10 * time.Second, Poll: 5 * time.Millisecond},
	}
}

// loadConfig 依次应用默认值、配置文件与命令行参数。
// 返回的 xconf.Config 在未指定配置文件时为 nil。
func loadConfig(cmd *cli.Command) (*Config, xconf.Config, error) {
	cfg := defaultConfig()

	var src xconf.Config
	if path := cmd.String("config"); path != "" {
		var err error
		src, err = xconf.New(path, xconf.WithTag("yaml"))
		if err != nil {
			return nil, nil, err
		}
		if err := src.Unmarshal("", cfg); err != nil {
			return nil, nil, err
		}
	}

	applyFlags(cmd, cfg)
	if len(cfg.Etcd.Endpoints) == 0 {
		cfg.Etcd.Endpoints = []string{defaultEtcdEndpoint}
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, src, nil
}

func applyFlags(cmd *cli.Command, cfg *Config) {
	if cmd.IsSet("backend") {
		cfg.Backend = cmd.String("backend")
	}
	if cmd.IsSet("prefix") {
		cfg.KeyPrefix = cmd.String("prefix")
	}
	if cmd.IsSet("timeout") {
		cfg.Timeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("redis-addr") {
		cfg.Redis.Addr = cmd.String("redis-addr")
	}
	if cmd.IsSet("redis-password") {
		cfg.Redis.Password = cmd.String("redis-password")
	}
	if cmd.IsSet("redis-db") {
		cfg.Redis.DB = cmd.Int("redis-db")
	}
	if cmd.IsSet("etcd-endpoints") {
		cfg.Etcd.Endpoints = cmd.StringSlice("etcd-endpoints")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		cfg.Log.File = cmd.String("log-file")
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case backendRedis, backendEtcd:
	default:
		return usagef("unknown backend %q (want redis or etcd)", c.Backend)
	}
	if c.Timeout <= 0 {
		return usagef("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// newLogger 按配置构建日志记录器，--log-file 启用按大小轮转。
func newLogger(cfg LogConfig, stderr io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetOutput(stderr).
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format)
	if cfg.File != "" {
		b = b.SetRotation(cfg.File)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, cleanup, nil
}

// processAttrs 标识当前进程的日志属性。
func processAttrs() []slog.Attr {
	return []slog.Attr{
		xlog.Component("xlockctl"),
		slog.String("process", xproc.ProcessName()),
		slog.Int("pid", xproc.ProcessID()),
	}
}

// applyLogLevel 从重新加载的配置中读取日志级别并生效。
func applyLogLevel(src xconf.Config, logger xlog.LoggerWithLevel) error {
	var lc LogConfig
	if err := src.Unmarshal("log", &lc); err != nil {
		return err
	}
	if lc.Level == "" {
		return nil
	}
	level, err := xlog.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xlock/pkg/config/xconf"
	"github.com/omeyang/xlock/pkg/distributed/xdlock"
	"github.com/omeyang/xlock/pkg/observability/xlog"
	"github.com/omeyang/xlock/pkg/observability/xmetrics"
	"github.com/omeyang/xlock/pkg/resilience/xbreaker"
	"github.com/omeyang/xlock/pkg/resilience/xretry"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件路径（yaml/json）",
			Sources: cli.EnvVars("XLOCK_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "后端类型 redis|etcd",
			Value:   backendRedis,
			Sources: cli.EnvVars("XLOCK_BACKEND"),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis 地址",
			Value:   defaultRedisAddr,
			Sources: cli.EnvVars("XLOCK_REDIS_ADDR"),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis 密码",
			Sources: cli.EnvVars("XLOCK_REDIS_PASSWORD"),
		},
		&cli.IntFlag{
			Name:  "redis-db",
			Usage: "Redis 数据库编号",
		},
		&cli.StringSliceFlag{
			Name:    "etcd-endpoints",
			Usage:   "etcd 端点，可重复",
			Sources: cli.EnvVars("XLOCK_ETCD_ENDPOINTS"),
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "锁 key 前缀",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "日志级别 debug|info|warn|error",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "日志格式 text|json",
			Value: "text",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "日志文件（按大小轮转），默认输出到 stderr",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "status/warmup/ping 的超时时间",
			Value:   10 * time.Second,
		},
	}
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		createRunCommand(),
		createStatusCommand(),
		createWarmupCommand(),
		createPingCommand(),
	}
}

// env 一次命令执行所需的配置、日志与后端。
type env struct {
	cfg      *Config
	src      xconf.Config
	logger   xlog.LoggerWithLevel
	log      xlog.Logger
	observer xmetrics.Observer
	backend  *backend
}

// setup 加载配置并连接后端，返回的 cleanup 必须调用。
// checks 在连接后端之前执行，用于拒绝当前命令不支持的配置。
func setup(cmd *cli.Command, checks ...func(*Config) error) (*env, func() error, error) {
	cfg, src, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return nil, nil, err
		}
	}
	logger, closeLog, err := newLogger(cfg.Log, cmd.Root().ErrWriter)
	if err != nil {
		return nil, nil, usagef("%v", err)
	}
	// 使用全局 otel provider，未配置导出器时为空操作。
	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("github.com/omeyang/xlock/cmd/xlockctl"))
	if err != nil {
		return nil, nil, errors.Join(err, closeLog())
	}
	b, err := openBackend(cfg)
	if err != nil {
		return nil, nil, errors.Join(err, closeLog())
	}
	e := &env{
		cfg:      cfg,
		src:      src,
		logger:   logger,
		log:      logger.With(processAttrs()...),
		observer: observer,
		backend:  b,
	}
	return e, func() error { return errors.Join(b.close(), closeLog()) }, nil
}

// =============================================================================
// 后端
// =============================================================================

type backend struct {
	// raw 未经熔断包装，供 ping 与 warmup 使用。
	raw   xdlock.Store
	store xdlock.Store
	redis *xdlock.RedisStore
	close func() error
}

func openBackend(cfg *Config) (*backend, error) {
	var (
		raw     xdlock.Store
		rs      *xdlock.RedisStore
		closeFn func() error
	)
	switch cfg.Backend {
	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store, err := xdlock.NewRedisStore(client)
		if err != nil {
			return nil, errors.Join(err, client.Close())
		}
		raw, rs, closeFn = store, store, client.Close
	case backendEtcd:
		store, client, err := xdlock.NewEtcdStoreFromConfig(&cfg.Etcd)
		if err != nil {
			return nil, err
		}
		raw, closeFn = store, client.Close
	default:
		return nil, usagef("unknown backend %q", cfg.Backend)
	}

	guarded, err := xdlock.NewBreakerStore(raw, xbreaker.NewBreaker("xlockctl-"+cfg.Backend,
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(5)),
		xbreaker.WithTimeout(30*time.Second),
	))
	if err != nil {
		return nil, errors.Join(err, closeFn())
	}
	return &backend{raw: raw, store: guarded, redis: rs, close: closeFn}, nil
}

// =============================================================================
// run
// =============================================================================

func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "持锁执行命令，期间自动续期；失锁时终止子进程",
		ArgsUsage: "<name> -- <cmd> [args...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Usage: "锁时长 (默认: 10s)"},
			&cli.DurationFlag{Name: "wait", Usage: "等待获取锁的最长时间，0 表示只尝试一次"},
			&cli.DurationFlag{Name: "poll", Usage: "等待期间的轮询间隔 (默认: 5ms)"},
			&cli.DurationFlag{Name: "renew", Usage: "续期间隔 (默认: ttl/3)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) > 1 && args[1] == "--" {
				args = append(args[:1:1], args[2:]...)
			}
			if len(args) < 2 {
				return usagef("run requires <name> and a command")
			}
			return cmdRun(ctx, cmd, args[0], args[1:])
		},
	}
}

func lockConfig(cmd *cli.Command, base LockConfig) (LockConfig, error) {
	lc := base
	if cmd.IsSet("ttl") {
		lc.TTL = cmd.Duration("ttl")
	}
	if cmd.IsSet("wait") {
		lc.Wait = cmd.Duration("wait")
	}
	if cmd.IsSet("poll") {
		lc.Poll = cmd.Duration("poll")
	}
	if cmd.IsSet("renew") {
		lc.Renew = cmd.Duration("renew")
	}
	if lc.TTL < xdlock.MinLockTime {
		return lc, usagef("ttl must be at least %s, got %s", xdlock.MinLockTime, lc.TTL)
	}
	if lc.Renew < 0 || lc.Renew >= lc.TTL {
		return lc, usagef("renew interval %s must be shorter than ttl %s", lc.Renew, lc.TTL)
	}
	return lc, nil
}

func cmdRun(ctx context.Context, cmd *cli.Command, name string, argv []string) (err error) {
	e, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cleanup()) }()

	lc, err := lockConfig(cmd, e.cfg.Lock)
	if err != nil {
		return err
	}

	if e.src != nil {
		stop := watchLogLevel(e)
		defer stop()
	}

	lock, err := xdlock.New(e.backend.store, name,
		xdlock.WithKeyPrefix(e.cfg.KeyPrefix),
		xdlock.WithLogger(e.log),
		xdlock.WithObserver(e.observer),
	)
	if err != nil {
		return usagef("%v", err)
	}

	ok, err := lock.Acquire(ctx, lc.TTL, xdlock.WithWaitTime(lc.Wait), xdlock.WithPollInterval(lc.Poll))
	if err != nil {
		return fmt.Errorf("acquire %s: %w", lock.Key(), err)
	}
	if !ok {
		return &exitError{code: exitBusy, msg: fmt.Sprintf("lock %s is held by another owner", lock.Key())}
	}
	e.log.Info(ctx, "lock acquired, starting command", xlog.Key(lock.Key()), xlog.Duration(lc.TTL))

	runErr := runLocked(ctx, cmd, lock, lc, argv)
	if closeErr := lock.Close(context.WithoutCancel(ctx)); closeErr != nil {
		e.log.Warn(ctx, "release failed", xlog.Err(closeErr))
	}
	return runErr
}

// runLocked 并发运行子进程与续期循环。续期失败时取消 ctx 终止子进程，
// 子进程结束时停止续期。
func runLocked(ctx context.Context, cmd *cli.Command, lock *xdlock.Lock, lc LockConfig, argv []string) error {
	g, gctx := errgroup.WithContext(ctx)
	keepCtx, stopKeep := context.WithCancel(gctx)
	defer stopKeep()

	child := exec.CommandContext(gctx, argv[0], argv[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = cmd.Root().Writer
	child.Stderr = cmd.Root().ErrWriter

	g.Go(func() error {
		if err := lock.KeepAlive(keepCtx, lc.TTL, lc.Renew); err != nil {
			return fmt.Errorf("keepalive %s: %w", lock.Key(), err)
		}
		return nil
	})
	g.Go(func() error {
		defer stopKeep()
		return child.Run()
	})

	err := g.Wait()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code <= 0 {
			code = exitFail
		}
		return &exitError{code: code}
	}
	return err
}

// watchLogLevel 配置文件变化时热更新日志级别，返回停止函数。
func watchLogLevel(e *env) func() {
	w, err := xconf.Watch(e.src, func(src xconf.Config, err error) {
		if err == nil {
			err = applyLogLevel(src, e.logger)
		}
		if err != nil {
			e.log.Warn(context.Background(), "config reload failed", xlog.Err(err))
			return
		}
		e.log.Info(context.Background(), "config reloaded", xlog.Operation("reload"))
	})
	if err != nil {
		e.log.Warn(context.Background(), "config watch disabled", xlog.Err(err))
		return func() {}
	}
	w.StartAsync()
	return func() { _ = w.Stop() }
}

// =============================================================================
// status / warmup / ping
// =============================================================================

func createStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "查看锁是否被持有及持有者",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("status requires exactly one <name>")
			}
			return cmdStatus(ctx, cmd, cmd.Args().First())
		},
	}
}

func cmdStatus(ctx context.Context, cmd *cli.Command, name string) (err error) {
	e, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cleanup()) }()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	lock, err := xdlock.New(e.backend.store, name,
		xdlock.WithKeyPrefix(e.cfg.KeyPrefix),
		xdlock.WithObserver(e.observer),
	)
	if err != nil {
		return usagef("%v", err)
	}
	holder, ok, err := lock.Holder(ctx)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if !ok {
		fmt.Fprintf(w, "%s: free\n", lock.Key())
		return nil
	}
	fmt.Fprintf(w, "%s: locked\nholder: %s\n", lock.Key(), holder)
	return nil
}

func createWarmupCommand() *cli.Command {
	return &cli.Command{
		Name:  "warmup",
		Usage: "预加载释放与续期脚本（仅 redis）",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdWarmup(ctx, cmd)
		},
	}
}

func cmdWarmup(ctx context.Context, cmd *cli.Command) (err error) {
	e, cleanup, err := setup(cmd, requireRedis)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cleanup()) }()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	if err := e.backend.redis.WarmupScripts(ctx); err != nil {
		return err
	}

	release, update := xdlock.ScriptHashes()
	fmt.Fprintf(cmd.Root().Writer, "release %s\nupdate  %s\n", release, update)
	return nil
}

func requireRedis(cfg *Config) error {
	if cfg.Backend != backendRedis {
		return usagef("warmup is only supported by the redis backend")
	}
	return nil
}

func createPingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "后端健康检查，失败时按指数退避重试",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "attempts", Usage: "最大尝试次数", Value: 3},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdPing(ctx, cmd)
		},
	}
}

func cmdPing(ctx context.Context, cmd *cli.Command) (err error) {
	e, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, cleanup()) }()

	attempts := cmd.Int("attempts")
	if attempts < 1 {
		return usagef("attempts must be at least 1, got %d", attempts)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	retryer := xretry.NewRetryer(
		xretry.WithRetryPolicy(xretry.NewFixedRetry(attempts)),
		xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
			xretry.WithInitialDelay(100*time.Millisecond),
			xretry.WithMaxDelay(2*time.Second),
		)),
		xretry.WithOnRetry(func(attempt int, err error) {
			e.log.Warn(ctx, "ping failed, retrying", slog.Int("attempt", attempt), xlog.Err(err))
		}),
	)
	start := time.Now()
	if err := retryer.Do(ctx, e.backend.raw.Ping); err != nil {
		return fmt.Errorf("%s unreachable: %w", e.cfg.Backend, err)
	}
	fmt.Fprintf(cmd.Root().Writer, "%s ok (%s)\n", e.cfg.Backend, time.Since(start).Round(time.Millisecond))
	return nil
}

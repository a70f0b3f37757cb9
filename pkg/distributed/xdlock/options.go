package xdlock

import (
	"strings"
	"time"

	"github.com/omeyang/xlock/pkg/observability/xlog"
	"github.com/omeyang/xlock/pkg/observability/xmetrics"
	"github.com/omeyang/xlock/pkg/resilience/xretry"
)

const (
	// MinLockTime 锁时长下限。Acquire/Update 的 lockTime 小于此值返回 ErrInvalidArgument。
	MinLockTime = time.Millisecond

	// DefaultPollInterval 等待模式下两次尝试之间的默认间隔。
	DefaultPollInterval = 5 * time.Millisecond

	// maxKeyLength 完整 key（含前缀）的最大字节数。
	maxKeyLength = 512
)

// validateKey 验证锁 key 是否有效。
func validateKey(name, fullKey string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyKey
	}
	if len(fullKey) > maxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// =============================================================================
// Handle 选项
// =============================================================================

// Option 定义锁 handle 的配置选项。
type Option func(*options)

type options struct {
	keyPrefix      string
	suppressErrors bool
	logger         xlog.Logger
	observer       xmetrics.Observer
	tokenFunc      func() (string, error)
	renewRetryer   *xretry.Retryer
}

func defaultOptions() *options {
	return &options{
		tokenFunc: NewToken,
	}
}

// WithKeyPrefix 设置锁 key 的前缀。最终 key = prefix + name。
// 默认无前缀。
//
//	lock, _ := xdlock.New(store, "orders", xdlock.WithKeyPrefix("lock:"))
//	// 实际 key: "lock:orders"
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithSuppressErrors 开启后，ErrInvalidArgument、ErrAlreadyAcquired、
// ErrNotAcquired 与 ErrLostLock 不再返回给调用方，操作结果统一为 (false, nil)。
//
// 存储错误与 context 错误始终返回，不受此选项影响。
func WithSuppressErrors(suppress bool) Option {
	return func(o *options) {
		o.suppressErrors = suppress
	}
}

// WithLogger 设置日志记录器。nil 表示不记录日志（默认）。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver 设置观测器，每个锁操作生成一个观测跨度。
// 默认不观测。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithTokenGenerator 设置 token 生成函数，默认使用 NewToken。
//
// 注意：生成的 token 必须全局唯一，否则不同 handle 之间会互相释放。
func WithTokenGenerator(fn func() (string, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.tokenFunc = fn
		}
	}
}

// WithRenewRetryer 设置 KeepAlive 续期失败时的重试器。
// 仅存储错误会被重试，失锁立即结束。默认最多尝试 3 次，指数退避。
func WithRenewRetryer(r *xretry.Retryer) Option {
	return func(o *options) {
		if r != nil {
			o.renewRetryer = r
		}
	}
}

// =============================================================================
// Acquire 选项
// =============================================================================

// AcquireOption 定义单次 Acquire 的配置选项。
type AcquireOption func(*acquireOptions)

type acquireOptions struct {
	wait time.Duration
	poll time.Duration
}

func defaultAcquireOptions() *acquireOptions {
	return &acquireOptions{
		poll: DefaultPollInterval,
	}
}

// WithWaitTime 设置等待窗口。默认 0，即仅尝试一次。
//
// 窗口内以轮询方式重试，超时返回 (false, nil)，不视为错误。
func WithWaitTime(d time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		if d > 0 {
			o.wait = d
		}
	}
}

// WithPollInterval 设置等待模式下的轮询间隔，默认 DefaultPollInterval。
func WithPollInterval(d time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		if d > 0 {
			o.poll = d
		}
	}
}

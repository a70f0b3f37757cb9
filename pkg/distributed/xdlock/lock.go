package xdlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xlock/pkg/observability/xlog"
	"github.com/omeyang/xlock/pkg/observability/xmetrics"
	"github.com/omeyang/xlock/pkg/resilience/xretry"
)

const (
	componentName = "xdlock"

	opAcquire   = "acquire"
	opRelease   = "release"
	opUpdate    = "update"
	opIsLocked  = "is_locked"
	opIsExists  = "is_exists"
	opRenew     = "renew"
	opCloseLock = "close"

	// cleanupTimeout Close 在调用方 ctx 已结束时使用的独立清理超时。
	cleanupTimeout = 5 * time.Second
)

var _ Locker = (*Lock)(nil)

// Lock 是一把分布式互斥锁的 handle。
//
// token 在创建时生成并在整个生命周期内复用，同一 handle 可以多次 Acquire/Release。
// 同一 handle 上的操作由内部互斥锁串行化；不同 handle（即使 key 相同）互不影响。
type Lock struct {
	store    Store
	key      string
	token    string
	suppress bool
	logger   xlog.Logger
	observer xmetrics.Observer
	retryer  *xretry.Retryer

	mu       sync.Mutex
	ttl      time.Duration
	acquired atomic.Bool
}

// New 创建锁 handle。name 为资源名，最终 key 为 prefix + name。
func New(store Store, name string, opts ...Option) (*Lock, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newLock(store, name, o)
}

func newLock(store Store, name string, o *options) (*Lock, error) {
	key := o.keyPrefix + name
	if err := validateKey(name, key); err != nil {
		return nil, err
	}

	token, err := o.tokenFunc()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrEmptyToken
	}

	retryer := o.renewRetryer
	if retryer == nil {
		retryer = defaultRenewRetryer()
	}

	return &Lock{
		store:    store,
		key:      key,
		token:    token,
		suppress: o.suppressErrors,
		logger:   o.logger,
		observer: o.observer,
		retryer:  retryer,
	}, nil
}

// defaultRenewRetryer 续期重试器：最多 3 次，50ms 起步的指数退避，上限 1s。
func defaultRenewRetryer() *xretry.Retryer {
	return xretry.NewRetryer(
		xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
		xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
			xretry.WithInitialDelay(50*time.Millisecond),
			xretry.WithMaxDelay(time.Second),
		)),
	)
}

// Key 返回完整的锁 key。
func (l *Lock) Key() string { return l.key }

// Token 返回本 handle 的持有者 token。
func (l *Lock) Token() string { return l.token }

// TTL 返回最近一次成功 Acquire/Update 使用的锁时长。
func (l *Lock) TTL() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ttl
}

// =============================================================================
// 协议操作
// =============================================================================

// Acquire 尝试获取锁，锁时长为 lockTime。
//
// 存储中的记录不存在时写入本 handle 的 token 并立即返回 true。
// 未设置 WithWaitTime 时只尝试一次；设置后在窗口内以 WithPollInterval 间隔轮询，
// 超时返回 (false, nil)。每次休眠前检查截止时间，因此至少会尝试一次。
//
// 错误：
//   - ErrInvalidArgument: lockTime < MinLockTime，不访问存储
//   - ErrAlreadyAcquired: 本 handle 已持有锁
//   - ctx.Err(): 等待期间 ctx 结束
//   - 存储错误
func (l *Lock) Acquire(ctx context.Context, lockTime time.Duration, opts ...AcquireOption) (bool, error) {
	ao := defaultAcquireOptions()
	for _, opt := range opts {
		opt(ao)
	}

	ctx, span := l.startSpan(ctx, opAcquire)
	l.mu.Lock()
	ok, err := l.acquire(ctx, lockTime, ao)
	l.mu.Unlock()
	span.End(l.result(ok, err))

	if ok {
		l.debug(ctx, "lock acquired", xlog.Duration(lockTime))
	}
	return l.suppressed(ok, err)
}

func (l *Lock) acquire(ctx context.Context, lockTime time.Duration, ao *acquireOptions) (bool, error) {
	if lockTime < MinLockTime {
		return false, fmt.Errorf("%w: got %s", ErrInvalidArgument, lockTime)
	}
	if l.acquired.Load() {
		return false, ErrAlreadyAcquired
	}

	deadline := time.Now().Add(ao.wait)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		ok, err := l.store.SetIfAbsent(ctx, l.key, l.token, lockTime)
		if err != nil {
			return false, err
		}
		if ok {
			l.ttl = lockTime
			l.acquired.Store(true)
			return true, nil
		}
		if ao.wait <= 0 || !time.Now().Before(deadline) {
			break
		}

		if timer == nil {
			timer = time.NewTimer(ao.poll)
		} else {
			timer.Reset(ao.poll)
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	l.acquired.Store(false)
	return false, nil
}

// Release 释放锁。
//
// 仅当存储中的值仍等于本 handle 的 token 时删除记录。
// 一旦尝试释放，本地持有状态即被清除，无论结果如何。
//
// 错误：
//   - ErrNotAcquired: 本 handle 未持有锁
//   - ErrLostLock: 记录已不属于本 handle（过期、被抢占或被外部删除）
//   - 存储错误
func (l *Lock) Release(ctx context.Context) (bool, error) {
	ctx, span := l.startSpan(ctx, opRelease)
	l.mu.Lock()
	ok, err := l.release(ctx)
	l.mu.Unlock()
	span.End(l.result(ok, err))

	if ok {
		l.debug(ctx, "lock released")
	}
	return l.suppressed(ok, err)
}

func (l *Lock) release(ctx context.Context) (bool, error) {
	if !l.acquired.Load() {
		return false, ErrNotAcquired
	}

	ok, err := l.store.DeleteIfEqual(ctx, l.key, l.token)
	l.acquired.Store(false)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrLostLock
	}
	return true, nil
}

// Update 将已持有锁的时长重置为 lockTime，不释放锁。
//
// 仅当存储中的值仍等于本 handle 的 token 时续期。
// 发现失锁时清除本地持有状态并返回 ErrLostLock；存储错误不改变本地状态。
//
// 错误：
//   - ErrInvalidArgument: lockTime < MinLockTime，不访问存储
//   - ErrNotAcquired: 本 handle 未持有锁
//   - ErrLostLock: 记录已不属于本 handle
//   - 存储错误
func (l *Lock) Update(ctx context.Context, lockTime time.Duration) (bool, error) {
	ctx, span := l.startSpan(ctx, opUpdate)
	l.mu.Lock()
	ok, err := l.update(ctx, lockTime)
	l.mu.Unlock()
	span.End(l.result(ok, err))
	return l.suppressed(ok, err)
}

func (l *Lock) update(ctx context.Context, lockTime time.Duration) (bool, error) {
	if lockTime < MinLockTime {
		return false, fmt.Errorf("%w: got %s", ErrInvalidArgument, lockTime)
	}
	if !l.acquired.Load() {
		return false, ErrNotAcquired
	}

	ok, err := l.store.ExpireIfEqual(ctx, l.key, l.token, lockTime)
	if err != nil {
		return false, err
	}
	if !ok {
		l.acquired.Store(false)
		return false, ErrLostLock
	}
	l.ttl = lockTime
	return true, nil
}

// IsAcquired 返回本地持有状态，不访问存储。
func (l *Lock) IsAcquired() bool {
	return l.acquired.Load()
}

// IsLocked 向存储确认本 handle 仍持有锁。
//
// 本地未持有时直接返回 false，不访问存储。
// 存储中的值与 token 不一致或记录不存在时，清除本地持有状态并返回 ErrLostLock。
func (l *Lock) IsLocked(ctx context.Context) (bool, error) {
	ctx, span := l.startSpan(ctx, opIsLocked)
	l.mu.Lock()
	ok, err := l.isLocked(ctx)
	l.mu.Unlock()
	span.End(l.result(ok, err))
	return l.suppressed(ok, err)
}

func (l *Lock) isLocked(ctx context.Context) (bool, error) {
	if !l.acquired.Load() {
		return false, nil
	}

	val, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return false, err
	}
	if ok && val == l.token {
		return true, nil
	}
	l.acquired.Store(false)
	return false, ErrLostLock
}

// IsExists 报告存储中是否存在该 key 的有效记录，不论持有者是谁。
// 不比较 token，不改变本地状态。
func (l *Lock) IsExists(ctx context.Context) (bool, error) {
	ctx, span := l.startSpan(ctx, opIsExists)
	_, ok, err := l.store.Get(ctx, l.key)
	span.End(l.result(ok, err))
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Holder 返回当前持有者的 token。记录不存在时 ok 为 false。
func (l *Lock) Holder(ctx context.Context) (token string, ok bool, err error) {
	return l.store.Get(ctx, l.key)
}

// =============================================================================
// 作用域守卫
// =============================================================================

// Close 在本地仍持有锁时尽力释放。
//
// 失锁（ErrLostLock）只记录日志并返回 nil，存储错误照常返回。
// ctx 已取消或超时时改用独立的清理上下文（5 秒超时），避免记录残留到 TTL 到期。
// 未持有锁时 Close 是空操作，可与 defer 搭配使用：
//
//	lock, _ := xdlock.New(store, "report")
//	defer lock.Close(ctx)
func (l *Lock) Close(ctx context.Context) error {
	if !l.acquired.Load() {
		return nil
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
	}

	ctx, span := l.startSpan(ctx, opCloseLock)
	l.mu.Lock()
	ok, err := l.release(ctx)
	l.mu.Unlock()
	span.End(l.result(ok, err))

	switch {
	case err == nil:
		l.debug(ctx, "lock released on close")
		return nil
	case errors.Is(err, ErrLostLock), errors.Is(err, ErrNotAcquired):
		l.warn(ctx, "lock lost before close", xlog.Err(err))
		return nil
	default:
		l.warn(ctx, "release on close failed", xlog.Err(err))
		return err
	}
}

// Do 获取锁后执行 fn，返回前总会通过 Close 释放锁。
//
// 未能在等待窗口内获取锁时返回 (false, nil)，fn 不会被执行。
// fn 的错误与释放错误通过 errors.Join 合并返回。
func (l *Lock) Do(ctx context.Context, lockTime time.Duration, fn func(ctx context.Context) error, opts ...AcquireOption) (ran bool, err error) {
	ok, err := l.Acquire(ctx, lockTime, opts...)
	if err != nil || !ok {
		return false, err
	}
	defer func() {
		err = errors.Join(err, l.Close(ctx))
	}()
	return true, fn(ctx)
}

// =============================================================================
// 续期
// =============================================================================

// KeepAlive 每隔 interval 将锁时长重置为 lockTime，直到 ctx 结束或失锁。
//
// interval <= 0 时取 lockTime/3。单次续期遇到存储错误会按重试器配置重试，
// 重试耗尽后返回该错误；失锁立即返回 ErrLostLock。
// 抑制模式下失锁返回 nil，调用方可通过 IsAcquired 判断。
// ctx 结束时返回 nil。
func (l *Lock) KeepAlive(ctx context.Context, lockTime, interval time.Duration) error {
	if lockTime < MinLockTime {
		_, err := l.suppressed(false, fmt.Errorf("%w: got %s", ErrInvalidArgument, lockTime))
		return err
	}
	if interval <= 0 {
		interval = max(lockTime/3, MinLockTime)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := l.renew(ctx, lockTime)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if isLockError(err) {
			l.warn(ctx, "lock lost during keepalive", xlog.Err(err))
		}
		_, err = l.suppressed(false, err)
		return err
	}
}

// renew 执行一次带重试的续期，失锁不重试。
func (l *Lock) renew(ctx context.Context, lockTime time.Duration) error {
	ctx, span := l.startSpan(ctx, opRenew)
	err := l.retryer.Do(ctx, func(ctx context.Context) error {
		l.mu.Lock()
		_, err := l.update(ctx, lockTime)
		l.mu.Unlock()
		if err == nil {
			return nil
		}
		if isLockError(err) {
			return xretry.Unrecoverable(err)
		}
		l.warn(ctx, "renew failed", xlog.Err(err))
		return err
	})
	span.End(l.result(err == nil, err))
	return err
}

// =============================================================================
// 内部辅助
// =============================================================================

// suppressed 按抑制策略转换结果，只影响锁协议错误。
func (l *Lock) suppressed(ok bool, err error) (bool, error) {
	if err != nil && l.suppress && isLockError(err) {
		return false, nil
	}
	return ok, err
}

func (l *Lock) startSpan(ctx context.Context, op string) (context.Context, xmetrics.Span) {
	return xmetrics.Start(ctx, l.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.String("lock.key", l.key)},
	})
}

func (l *Lock) result(ok bool, err error) xmetrics.Result {
	return xmetrics.Result{
		Err: err,
		Attrs: []xmetrics.Attr{
			xmetrics.Bool("lock.ok", ok),
			xmetrics.Bool("lock.lost", errors.Is(err, ErrLostLock)),
		},
	}
}

func (l *Lock) debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(ctx, msg, append(attrs, xlog.Key(l.key))...)
}

func (l *Lock) warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.Warn(ctx, msg, append(attrs, xlog.Key(l.key))...)
}

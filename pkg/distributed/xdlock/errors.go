package xdlock

import (
	"errors"
	"fmt"
)

// 锁协议错误。
//
// 以下四个错误在 WithSuppressErrors 模式下会被转换为 (false, nil)，
// 使用 errors.Is 进行匹配：
//
//	if errors.Is(err, xdlock.ErrLostLock) {
//	    // 锁已丢失，不能再信任受保护的资源
//	}
var (
	// ErrInvalidArgument 锁时长小于 MinLockTime。
	// 校验失败时不会访问存储。
	ErrInvalidArgument = errors.New("xdlock: lock time must not be less than MinLockTime")

	// ErrAlreadyAcquired 在已持有锁的 handle 上再次 Acquire。
	ErrAlreadyAcquired = errors.New("xdlock: lock has been acquired already")

	// ErrNotAcquired 在未持有锁的 handle 上调用 Release 或 Update。
	ErrNotAcquired = errors.New("xdlock: lock is not acquired")

	// ErrLostLock 存储中的 token 与本 handle 不一致。
	// 锁已过期、被其他持有者获取或被外部删除。
	ErrLostLock = errors.New("xdlock: lock has been lost")
)

// 构造错误，不受抑制模式影响。
var (
	// ErrNilStore 未提供存储实现。
	ErrNilStore = errors.New("xdlock: store is nil")

	// ErrNilClient 存储客户端为空。
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrEmptyKey 锁 key 为空或仅含空白。
	ErrEmptyKey = errors.New("xdlock: key must not be empty")

	// ErrKeyTooLong 锁 key 超过 512 字节。
	ErrKeyTooLong = errors.New("xdlock: key exceeds maximum length of 512 bytes")

	// ErrEmptyToken token 生成函数返回空字符串。
	ErrEmptyToken = errors.New("xdlock: token must not be empty")
)

// isLockError 判断 err 是否属于可抑制的锁协议错误。
func isLockError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrAlreadyAcquired) ||
		errors.Is(err, ErrNotAcquired) ||
		errors.Is(err, ErrLostLock)
}

// storeError 包装存储层错误，保留原始错误链。
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("xdlock: %s: %w", op, err)
}

package xdlock

import (
	"context"
	"time"
)

// Locker 定义分布式锁 handle 的操作集合，*Lock 实现了此接口。
//
// 每个 Locker 绑定一个 key 与一个固定 token，可多次获取与释放。
// 业务代码依赖此接口即可在测试中替换为 mock。
type Locker interface {
	// Acquire 获取锁。未获取到（含等待超时）返回 (false, nil)。
	Acquire(ctx context.Context, lockTime time.Duration, opts ...AcquireOption) (bool, error)

	// Release 释放锁。记录已不属于本 handle 时返回 [ErrLostLock]。
	Release(ctx context.Context) (bool, error)

	// Update 重置已持有锁的时长。
	Update(ctx context.Context, lockTime time.Duration) (bool, error)

	// IsAcquired 返回本地持有状态，不访问存储。
	IsAcquired() bool

	// IsLocked 向存储确认本 handle 仍持有锁。
	IsLocked(ctx context.Context) (bool, error)

	// IsExists 报告存储中是否存在该 key 的记录，不论持有者。
	IsExists(ctx context.Context) (bool, error)

	// Close 尽力释放仍持有的锁，失锁不视为错误。
	Close(ctx context.Context) error

	// Key 返回完整的锁 key。
	Key() string
}

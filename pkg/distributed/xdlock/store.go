package xdlock

import (
	"context"
	"time"
)

//go:generate mockgen -source=store.go -destination=store_mock_test.go -package=xdlock

// Store 是锁协调器依赖的最小存储原语集合。
//
// 所有带条件的变更操作都必须由存储端原子完成，
// 协调器绝不会以"先读后写"的两次调用实现条件变更。
type Store interface {
	// SetIfAbsent 仅当 key 不存在时写入 token 并设置 ttl。
	// 返回 true 表示写入成功。
	SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Get 读取 key 的当前值。key 不存在时 ok 为 false，err 为 nil。
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// DeleteIfEqual 仅当 key 的当前值等于 token 时删除 key。
	// 返回 false 表示未执行删除（值不同或 key 不存在）。
	DeleteIfEqual(ctx context.Context, key, token string) (bool, error)

	// ExpireIfEqual 仅当 key 的当前值等于 token 时将过期时间重置为 ttl。
	ExpireIfEqual(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// Ping 检查存储是否可用。
	Ping(ctx context.Context) error
}

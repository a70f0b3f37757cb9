package xdlock

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// Lua 脚本
// =============================================================================

var (
	//go:embed lua/release.lua
	releaseLuaSource string

	//go:embed lua/update.lua
	updateLuaSource string
)

// scripts 持有条件删除和条件续期脚本。
//
// redis.Script.Run 先以 EVALSHA 执行，收到 NOSCRIPT 回复时改用 EVAL
// 提交完整脚本，服务端随即缓存该脚本；其他错误原样返回。
type scripts struct {
	release *redis.Script
	update  *redis.Script
}

var (
	globalScripts     *scripts
	globalScriptsOnce sync.Once
)

func getScripts() *scripts {
	globalScriptsOnce.Do(func() {
		globalScripts = &scripts{
			release: redis.NewScript(releaseLuaSource),
			update:  redis.NewScript(updateLuaSource),
		}
	})
	return globalScripts
}

// =============================================================================
// RedisStore
// =============================================================================

var _ Store = (*RedisStore)(nil)

// RedisStore 基于 Redis 的 Store 实现。
//
//   - SetIfAbsent: SET key token PX ttl NX
//   - Get: GET key
//   - DeleteIfEqual / ExpireIfEqual: Lua 脚本，比较与变更在服务端原子完成
//
// 支持单节点、Sentinel 与 Cluster（任意 redis.UniversalClient）。
// 客户端生命周期由调用方管理，RedisStore 不会关闭它。
type RedisStore struct {
	client  redis.UniversalClient
	scripts *scripts
}

// NewRedisStore 创建 Redis 存储。
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisStore{
		client:  client,
		scripts: getScripts(),
	}, nil
}

// Client 返回底层 Redis 客户端。
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

// SetIfAbsent 实现 Store。
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	// go-redis 对非整秒的 ttl 使用 PX，整秒使用 EX，两者语义一致。
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, storeError("set", err)
	}
	return ok, nil
}

// Get 实现 Store。
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeError("get", err)
	}
	return val, true, nil
}

// DeleteIfEqual 实现 Store。
func (s *RedisStore) DeleteIfEqual(ctx context.Context, key, token string) (bool, error) {
	n, err := s.scripts.release.Run(ctx, s.client, []string{key}, token).Int64()
	if err != nil {
		return false, storeError("release script", err)
	}
	return n != 0, nil
}

// ExpireIfEqual 实现 Store。
func (s *RedisStore) ExpireIfEqual(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := s.scripts.update.Run(ctx, s.client, []string{key}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, storeError("update script", err)
	}
	return n != 0, nil
}

// Ping 实现 Store。
func (s *RedisStore) Ping(ctx context.Context) error {
	return storeError("ping", s.client.Ping(ctx).Err())
}

// WarmupScripts 使用 SCRIPT LOAD 预加载脚本。
//
// 建议在启动时调用。失败不影响后续使用，首次执行时会通过 EVAL 回退自动加载。
func (s *RedisStore) WarmupScripts(ctx context.Context) error {
	if err := s.scripts.release.Load(ctx, s.client).Err(); err != nil {
		return fmt.Errorf("xdlock: load release script: %w", err)
	}
	if err := s.scripts.update.Load(ctx, s.client).Err(); err != nil {
		return fmt.Errorf("xdlock: load update script: %w", err)
	}
	return nil
}

// ScriptHashes 返回释放脚本和续期脚本的 SHA1。
func ScriptHashes() (release, update string) {
	s := getScripts()
	return s.release.Hash(), s.update.Hash()
}

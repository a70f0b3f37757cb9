// Package xdlock 实现基于 KV 存储的客户端分布式互斥锁。
//
// # 协议
//
// 每个 [Lock] handle 绑定一个 key 与一个全局唯一的 token：
//
//   - Acquire: 仅当 key 不存在时写入 token 并设置过期时间（Redis 为 SET NX PX）
//   - Release: 仅当存储中的值等于 token 时删除
//   - Update: 仅当存储中的值等于 token 时重置过期时间
//
// 条件删除与条件续期在存储端原子完成。Redis 后端使用 Lua 脚本，
// 先以 EVALSHA 执行，脚本缓存缺失时自动回退到 EVAL；etcd 后端使用
// 事务比较与租约。锁的安全性依赖过期时间：持有者必须在 TTL 内完成工作
// 或通过 Update/KeepAlive 续期。
//
// # 本地状态
//
// handle 记录是否认为自己持有锁（IsAcquired）。Release 总会清除该状态；
// Update 与 IsLocked 发现记录已不属于本 handle 时清除并返回 [ErrLostLock]；
// 存储错误不会让 Update 改变本地状态。
//
// # 错误抑制
//
// [WithSuppressErrors] 将四个锁协议错误转换为 (false, nil)：
// [ErrInvalidArgument]、[ErrAlreadyAcquired]、[ErrNotAcquired]、[ErrLostLock]。
// 存储错误、熔断错误与 context 错误始终返回。
//
// # 等待
//
// 默认 Acquire 只尝试一次。[WithWaitTime] 开启有界轮询：
// 每次失败后若未超过截止时间则休眠 [WithPollInterval] 再试，超时返回 (false, nil)。
//
// # 后端
//
//   - [RedisStore]: 任意 redis.UniversalClient（单节点、Sentinel、Cluster）
//   - [EtcdStore]: etcd v3，租约以秒计，TTL 向上取整
//   - [BreakerStore]: 为任意 Store 加熔断保护
//
// 客户端的生命周期由调用方管理。
package xdlock

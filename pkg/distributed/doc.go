// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xdlock: 基于 KV 存储的分布式互斥锁，支持 Redis 与 etcd 后端
package distributed

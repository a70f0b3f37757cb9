// Package storage 提供存储客户端相关的子包。
//
// 子包列表：
//   - xetcd: etcd v3 客户端构建（配置校验、keepalive、TLS、健康检查）
//
// Redis 客户端直接使用 go-redis，由调用方创建并传给 xdlock.NewRedisStore。
package storage

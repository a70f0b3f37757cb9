// Package xetcd 构建 etcd v3 客户端。
//
// 负责配置校验、默认值填充、gRPC keepalive 与 TLS 设置以及创建时的
// 可选健康检查。事务与租约直接使用 RawClient 返回的原生客户端，
// 锁语义由 xdlock.EtcdStore 实现。
package xetcd

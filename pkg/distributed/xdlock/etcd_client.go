package xdlock

import (
	"errors"
	"fmt"

	"github.com/omeyang/xlock/pkg/storage/xetcd"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdConfig etcd 客户端配置，xetcd.Config 的类型别名，支持 JSON/YAML 反序列化。
type EtcdConfig = xetcd.Config

// DefaultEtcdConfig 返回带推荐默认值的配置。
func DefaultEtcdConfig() *EtcdConfig {
	return xetcd.DefaultConfig()
}

// NewEtcdClient 根据配置创建原生 etcd 客户端。
//
// 错误：xetcd.ErrNilConfig、xetcd.ErrNoEndpoints、连接错误、健康检查错误。
func NewEtcdClient(config *EtcdConfig, opts ...xetcd.Option) (*clientv3.Client, error) {
	client, err := xetcd.NewClient(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("xdlock: %w", err)
	}
	return client.RawClient(), nil
}

// NewEtcdStoreFromConfig 便捷函数，等同于 NewEtcdClient + NewEtcdStore。
// 返回的 client 需要调用方负责关闭。
func NewEtcdStoreFromConfig(config *EtcdConfig, opts ...xetcd.Option) (*EtcdStore, *clientv3.Client, error) {
	client, err := NewEtcdClient(config, opts...)
	if err != nil {
		return nil, nil, err
	}

	store, err := NewEtcdStore(client)
	if err != nil {
		return nil, nil, errors.Join(err, client.Close())
	}
	return store, client, nil
}

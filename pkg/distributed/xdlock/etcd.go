package xdlock

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// etcdKV 定义 EtcdStore 使用的 KV 操作，方法签名与 clientv3.KV 一致。
type etcdKV interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Txn(ctx context.Context) clientv3.Txn
}

// etcdLease 定义 EtcdStore 使用的租约操作，方法签名与 clientv3.Lease 一致。
type etcdLease interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
}

// etcdClient 组合接口，*clientv3.Client 实现了此接口。
type etcdClient interface {
	etcdKV
	etcdLease
}

var (
	_ etcdClient = (*clientv3.Client)(nil)
	_ Store      = (*EtcdStore)(nil)
)

const (
	// etcdHealthKey Ping 使用的探测 key。
	etcdHealthKey = "xdlock-health-check"

	// revokeTimeout 回收租约的超时，调用方 ctx 已取消时仍尽力回收。
	revokeTimeout = 5 * time.Second
)

// EtcdStore 基于 etcd 租约与事务的 Store 实现。
//
// 记录的过期由租约承担：每次写入都绑定一个新租约，
// 条件比较在事务的 If 子句中完成，保证比较与变更的原子性。
//
// etcd 租约以秒为单位，ttl 向上取整到整秒（最少 1 秒）；
// 服务端还可能将过小的 TTL 提升到其最小租约时长。
type EtcdStore struct {
	client etcdClient
}

// NewEtcdStore 创建 etcd 存储。客户端生命周期由调用方管理。
func NewEtcdStore(client *clientv3.Client) (*EtcdStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &EtcdStore{client: client}, nil
}

// SetIfAbsent 实现 Store。
func (s *EtcdStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	lease, err := s.client.Grant(ctx, leaseSeconds(ttl))
	if err != nil {
		return false, storeError("grant lease", err)
	}

	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, token, clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil {
		s.revoke(ctx, lease.ID)
		return false, storeError("set", err)
	}
	if !resp.Succeeded {
		s.revoke(ctx, lease.ID)
		return false, nil
	}
	return true, nil
}

// Get 实现 Store。
func (s *EtcdStore) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return "", false, storeError("get", err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// DeleteIfEqual 实现 Store。
func (s *EtcdStore) DeleteIfEqual(ctx context.Context, key, token string) (bool, error) {
	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", token)).
		Then(clientv3.OpGet(key), clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return false, storeError("delete", err)
	}
	if !resp.Succeeded {
		return false, nil
	}
	s.revoke(ctx, previousLease(resp))
	return true, nil
}

// ExpireIfEqual 实现 Store。
//
// 先申请新租约，再在事务中把记录改绑到新租约；成功后回收旧租约，失败则回收新租约。
func (s *EtcdStore) ExpireIfEqual(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	lease, err := s.client.Grant(ctx, leaseSeconds(ttl))
	if err != nil {
		return false, storeError("grant lease", err)
	}

	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", token)).
		Then(clientv3.OpGet(key), clientv3.OpPut(key, token, clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil {
		s.revoke(ctx, lease.ID)
		return false, storeError("expire", err)
	}
	if !resp.Succeeded {
		s.revoke(ctx, lease.ID)
		return false, nil
	}
	s.revoke(ctx, previousLease(resp))
	return true, nil
}

// Ping 实现 Store。
func (s *EtcdStore) Ping(ctx context.Context) error {
	_, err := s.client.Get(ctx, etcdHealthKey, clientv3.WithCountOnly())
	return storeError("ping", err)
}

// revoke 尽力回收租约。失败时租约会在 TTL 到期后自然过期，因此忽略错误。
func (s *EtcdStore) revoke(ctx context.Context, id clientv3.LeaseID) {
	if id == clientv3.NoLease {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
	defer cancel()
	_, _ = s.client.Revoke(rctx, id)
}

// previousLease 从事务第一个 Get 结果中取出记录原先绑定的租约。
func previousLease(resp *clientv3.TxnResponse) clientv3.LeaseID {
	if resp == nil || len(resp.Responses) == 0 {
		return clientv3.NoLease
	}
	rng := resp.Responses[0].GetResponseRange()
	if rng == nil || len(rng.Kvs) == 0 {
		return clientv3.NoLease
	}
	return clientv3.LeaseID(rng.Kvs[0].Lease)
}

// leaseSeconds 将 ttl 向上取整为整秒，最少 1 秒。
func leaseSeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

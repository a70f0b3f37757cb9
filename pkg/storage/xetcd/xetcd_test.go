package xetcd

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		eps     []string
		wantErr error
	}{
		{"empty", nil, ErrNoEndpoints},
		{"blank endpoint", []string{""}, ErrInvalidEndpoint},
		{"missing port", []string{"localhost"}, ErrInvalidEndpoint},
		{"ok", []string{"localhost:2379", "[::1]:2379"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Endpoints: tt.eps}).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	d := DefaultConfig()
	assert.True(t, d.RejectOldCluster)
	assert.True(t, d.PermitWithoutStream)

	orig := &Config{Endpoints: []string{"a:1"}, DialTimeout: time.Second}
	cfg := orig.withDefaults()
	assert.Equal(t, time.Second, cfg.DialTimeout)
	assert.Equal(t, defaultDialKeepAliveTime, cfg.DialKeepAliveTime)
	assert.Equal(t, defaultDialKeepAliveTimeout, cfg.DialKeepAliveTimeout)
	assert.Zero(t, orig.DialKeepAliveTime, "原配置不应被修改")
}

func TestClientConfig(t *testing.T) {
	o := defaultOptions()
	WithTLS(&tls.Config{MinVersion: tls.VersionTLS12})(o)

	cfg := DefaultConfig()
	cfg.Endpoints = []string{"a:2379"}
	cfg.Username = "root"
	cc := clientConfig(cfg.withDefaults(), o)

	assert.Equal(t, []string{"a:2379"}, cc.Endpoints)
	assert.Equal(t, "root", cc.Username)
	assert.NotNil(t, cc.TLS)
	assert.Len(t, cc.DialOptions, 1)
}

func TestOptions(t *testing.T) {
	o := defaultOptions()
	WithHealthCheck(true, 0)(o)
	assert.True(t, o.healthCheck)
	assert.Equal(t, 10*time.Second, o.healthTimeout)

	WithHealthCheck(true, time.Second)(o)
	assert.Equal(t, time.Second, o.healthTimeout)

	WithHealthCheckKey("")(o)
	assert.Equal(t, defaultHealthCheckKey, o.healthCheckKey)
	WithHealthCheckKey("/app/health")(o)
	assert.Equal(t, "/app/health", o.healthCheckKey)

	WithContext(nil)(o) //nolint:staticcheck // nil 应被忽略
	assert.NotNil(t, o.ctx)
	ctx := context.WithValue(context.Background(), struct{}{}, 1)
	WithContext(ctx)(o)
	assert.Equal(t, ctx, o.ctx)
}

func TestNewClient(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		_, err := NewClient(nil)
		assert.ErrorIs(t, err, ErrNilConfig)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		_, err := NewClient(&Config{})
		assert.ErrorIs(t, err, ErrNoEndpoints)
	})

	t.Run("CreateError", func(t *testing.T) {
		orig := newRawClient
		t.Cleanup(func() { newRawClient = orig })
		newRawClient = func(clientv3.Config) (*clientv3.Client, error) {
			return nil, errors.New("dial failed")
		}

		_, err := NewClient(&Config{Endpoints: []string{"a:2379"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dial failed")
	})

	t.Run("Lazy", func(t *testing.T) {
		// clientv3 默认非阻塞拨号，不可达的 endpoint 也能创建成功。
		c, err := NewClient(&Config{Endpoints: []string{"127.0.0.1:1"}, DialTimeout: 100 * time.Millisecond})
		require.NoError(t, err)
		assert.NotNil(t, c.RawClient())
		assert.Equal(t, 100*time.Millisecond, c.Config().DialTimeout)

		require.NoError(t, c.Close())
		assert.True(t, c.IsClosed())
		assert.NoError(t, c.Close())
	})

	t.Run("HealthCheckFails", func(t *testing.T) {
		_, err := NewClient(&Config{Endpoints: []string{"127.0.0.1:1"}},
			WithHealthCheck(true, 200*time.Millisecond))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "health check failed")
	})
}

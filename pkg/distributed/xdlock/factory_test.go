package xdlock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewFactory(t *testing.T) {
	_, err := NewFactory(nil)
	assert.ErrorIs(t, err, ErrNilStore)
}

func TestFactory_NewLock(t *testing.T) {
	store := NewMockStore(gomock.NewController(t))
	f, err := NewFactory(store, WithKeyPrefix("lock:"), WithSuppressErrors(true))
	require.NoError(t, err)
	assert.Same(t, store, f.Store())

	a, err := f.NewLock("orders")
	require.NoError(t, err)
	assert.Equal(t, "lock:orders", a.Key())
	assert.True(t, a.suppress)

	b, err := f.NewLock("orders", WithKeyPrefix("other:"), WithSuppressErrors(false))
	require.NoError(t, err)
	assert.Equal(t, "other:orders", b.Key())
	assert.False(t, b.suppress)
	assert.NotEqual(t, a.Token(), b.Token())

	_, err = f.NewLock(" ")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestFactory_Health(t *testing.T) {
	store := NewMockStore(gomock.NewController(t))
	f, err := NewFactory(store)
	require.NoError(t, err)

	gomock.InOrder(
		store.EXPECT().Ping(gomock.Any()).Return(nil),
		store.EXPECT().Ping(gomock.Any()).Return(errStore),
	)
	assert.NoError(t, f.Health(context.Background()))
	assert.ErrorIs(t, f.Health(context.Background()), errStore)
}

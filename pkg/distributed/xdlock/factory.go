package xdlock

import "context"

// Factory 共享同一 Store 与公共选项，批量创建锁 handle。
//
//	factory, _ := xdlock.NewFactory(store,
//	    xdlock.WithKeyPrefix("lock:"),
//	    xdlock.WithLogger(logger),
//	)
//	lock, _ := factory.NewLock("orders")
type Factory struct {
	store Store
	opts  []Option
}

// NewFactory 创建锁工厂。opts 作用于工厂创建的每个 handle。
func NewFactory(store Store, opts ...Option) (*Factory, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Factory{store: store, opts: opts}, nil
}

// NewLock 创建锁 handle。opts 在工厂选项之后应用，可覆盖工厂选项。
func (f *Factory) NewLock(name string, opts ...Option) (*Lock, error) {
	o := defaultOptions()
	for _, opt := range f.opts {
		opt(o)
	}
	for _, opt := range opts {
		opt(o)
	}
	return newLock(f.store, name, o)
}

// Store 返回底层存储。
func (f *Factory) Store() Store {
	return f.store
}

// Health 检查底层存储是否可用。
func (f *Factory) Health(ctx context.Context) error {
	return f.store.Ping(ctx)
}

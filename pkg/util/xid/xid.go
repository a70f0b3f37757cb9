package xid

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/sony/sonyflake/v2"
)

var (
	ErrInvalidID     = errors.New("xid: invalid id")
	ErrOverTimeLimit = errors.New("xid: time component overflow")
	ErrInvalidConfig = errors.New("xid: invalid config")
)

const (
	machineBits  = 16
	sequenceBits = 8
	machineMask  = (1 << machineBits) - 1
	sequenceMask = (1 << sequenceBits) - 1
)

// Components ID 的组成部分。
type Components struct {
	ID       int64
	Time     int64
	Sequence int64
	Machine  int64
}

// Option 生成器配置选项
type Option func(*options)

type options struct {
	machineID      func() (uint16, error)
	checkMachineID func(uint16) bool
}

// WithMachineID 设置机器 ID 来源，默认 DefaultMachineID。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(o *options) { o.machineID = fn }
}

// WithCheckMachineID 设置机器 ID 校验函数，返回 false 时创建失败。
func WithCheckMachineID(fn func(uint16) bool) Option {
	return func(o *options) { o.checkMachineID = fn }
}

// Generator ID 生成器，并发安全。
type Generator struct {
	sf *sonyflake.Sonyflake
}

// NewGenerator 创建生成器。
func NewGenerator(opts ...Option) (*Generator, error) {
	o := &options{machineID: DefaultMachineID}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	settings := sonyflake.Settings{
		MachineID: func() (int, error) {
			id, err := o.machineID()
			return int(id), err
		},
	}
	if o.checkMachineID != nil {
		settings.CheckMachineID = func(id int) bool {
			return o.checkMachineID(uint16(id))
		}
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{sf: sf}, nil
}

// New 生成一个 ID。
func (g *Generator) New() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
		}
		return 0, err
	}
	return id, nil
}

// NewString 生成一个 base36 字符串 ID。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}

var defaultGenerator = sync.OnceValues(func() (*Generator, error) {
	return NewGenerator()
})

// NewString 使用默认生成器生成字符串 ID，首次调用时初始化。
func NewString() (string, error) {
	g, err := defaultGenerator()
	if err != nil {
		return "", err
	}
	return g.NewString()
}

// Parse 解析 base36 字符串 ID。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return id, nil
}

// Decompose 拆分 ID 的组成部分。
func Decompose(id int64) (Components, error) {
	if id <= 0 {
		return Components{}, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return Components{
		ID:       id,
		Machine:  id & machineMask,
		Sequence: (id >> machineBits) & sequenceMask,
		Time:     id >> (machineBits + sequenceBits),
	}, nil
}

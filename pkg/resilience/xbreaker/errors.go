package xbreaker

import (
	"errors"
	"fmt"
)

// BreakerError 熔断器拒绝调用时返回的错误。
//
// Retryable() 返回 false，xretry 遇到此错误立即结束。
type BreakerError struct {
	Err   error // ErrOpenState 或 ErrTooManyRequests
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error { return e.Err }

func (e *BreakerError) Retryable() bool { return false }

// wrapBreakerError 只包装当前熔断器直接返回的哨兵错误，
// 不遍历错误链，避免嵌套场景下把内层熔断归因到外层。
func wrapBreakerError(err error, name string) error {
	var be *BreakerError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &be):
		return err
	case err == ErrOpenState: //nolint:errorlint // 只匹配直接返回的哨兵
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case err == ErrTooManyRequests: //nolint:errorlint // 同上
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 检查错误是否是熔断器打开错误
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsBreakerError 检查错误是否由熔断器拒绝产生
func IsBreakerError(err error) bool {
	return errors.Is(err, ErrOpenState) || errors.Is(err, ErrTooManyRequests)
}

// Package retry 提供有上限的重试策略，与调用方的控制流解耦
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy 最多尝试 MaxAttempts 次，两次尝试之间固定等待 Delay
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

type stopError struct {
	err error
}

func (s *stopError) Error() string { return s.err.Error() }
func (s *stopError) Unwrap() error { return s.err }

// Stop 包装一个不应再重试的错误
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Do 依次调用 fn（attempt 从 1 开始），成功即返回。
// 全部失败时返回最后一次的错误；ctx 取消时返回 ctx.Err()。
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(attempt)
		if err == nil {
			return nil
		}
		var stop *stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		if attempt == attempts {
			break
		}
		if !Sleep(ctx, p.Delay) {
			return ctx.Err()
		}
	}
	return err
}

// Sleep 等待 d，ctx 被取消时提前返回 false
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

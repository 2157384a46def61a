// Package ratelimit 按主机限制访问频率，避免短时间内反复请求同一上游
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// HostRateLimiter 管理各个主机的访问频率限制
type HostRateLimiter struct {
	defaultInterval time.Duration
	limiters        map[string]*hostLimiter // 主机名 -> 限制器
	mu              sync.Mutex
}

// hostLimiter 单个主机的频率限制器
type hostLimiter struct {
	minInterval time.Duration // 最小访问间隔
	lastAccess  time.Time     // 上次访问时间
	mu          sync.Mutex
}

// New 创建限制器，未单独设置的主机使用 defaultInterval（<=0 表示不限制）
func New(defaultInterval time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		defaultInterval: defaultInterval,
		limiters:        make(map[string]*hostLimiter),
	}
}

func (l *HostRateLimiter) get(host string) *hostLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[host]
	if !ok {
		// 零值时间，首次访问不会被限制
		limiter = &hostLimiter{minInterval: l.defaultInterval}
		l.limiters[host] = limiter
	}
	return limiter
}

// Wait 等待直到允许访问 host。
// 返回 true 表示成功获取访问权限，false 表示被 ctx 取消
func (l *HostRateLimiter) Wait(ctx context.Context, host string) bool {
	limiter := l.get(host)
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		limiter.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(limiter.lastAccess)
		if limiter.minInterval <= 0 || elapsed >= limiter.minInterval {
			limiter.lastAccess = now
			limiter.mu.Unlock()
			return true
		}
		waitTime := limiter.minInterval - elapsed
		// 释放锁再等待
		limiter.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

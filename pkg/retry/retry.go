// Package retry 对远程调用做有限次数的指数退避重试。
//
// 第 k 次重试（从 0 开始）前等待 BaseDelay * 2^k，不加抖动；
// 只有 IsRetryable 判定为可重试的错误才会重试，其余错误立即返回。
package retry

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// OnRetry 在每次等待前调用，attempt 从 1 开始
	OnRetry func(attempt int, delay time.Duration, err error)
	// Classify 为空时使用 IsRetryable
	Classify func(err error) bool
}

func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

// Delay 返回第 k 次重试前的等待时长
func (p Policy) Delay(k int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(k))
}

var retryableMarkers = []string{
	"503",
	"service unavailable",
	"overloaded",
	"429",
	"too many requests",
}

// IsRetryable 503/overloaded/429/too many requests 以及网络层错误可以重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Do 执行 op，失败且可重试时按策略退避，重试耗尽后返回最后一次的错误
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	classify := p.Classify
	if classify == nil {
		classify = IsRetryable
	}

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= p.MaxRetries || !classify(err) {
			return zero, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

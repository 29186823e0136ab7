package request

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/tokmz/fintrack/pkg/errors"
)

// RetryConfig 重试策略
// delay(n) = min(MaxDelay, BaseDelay * Rate^n)，再叠加 ±Jitter 比例的抖动
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Rate       float64
	Jitter     float64
}

// DefaultRetryConfig 默认重试策略
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Rate:       2,
		Jitter:     0.2,
	}
}

func (rc RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if rc.MaxRetries < 0 {
		rc.MaxRetries = 0
	}
	if rc.BaseDelay <= 0 {
		rc.BaseDelay = def.BaseDelay
	}
	if rc.MaxDelay < rc.BaseDelay {
		rc.MaxDelay = max(def.MaxDelay, rc.BaseDelay)
	}
	if rc.Rate < 1 {
		rc.Rate = def.Rate
	}
	if rc.Jitter < 0 || rc.Jitter >= 1 {
		rc.Jitter = 0
	}
	return rc
}

// delay 第 n 次重试前的等待时间（n 从 0 开始）
func (rc RetryConfig) delay(n int) time.Duration {
	d := float64(rc.BaseDelay) * math.Pow(rc.Rate, float64(n))
	if math.IsInf(d, 0) || d > float64(rc.MaxDelay) {
		d = float64(rc.MaxDelay)
	}
	if rc.Jitter > 0 {
		d += d * rc.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

// idempotent POST 会创建记录，响应丢失后重发可能产生重复数据
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// retryable 网络失败与网关类状态可重试，业务错误不重试
func retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransport):
		return true
	}
	var e *errors.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.HttpCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tokmz/fintrack/internal/server"
)

// CORSConfig CORS 中间件配置
type CORSConfig struct {
	// AllowOrigins 允许的源，支持 "https://*.example.com" 通配，"*" 允许全部
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	ExposeHeaders    []string      `mapstructure:"expose_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// DefaultCORSConfig 返回默认配置（允许所有源）
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Traceparent"},
		MaxAge:        12 * time.Hour,
	}
}

// originMatcher 预编译的源匹配规则
type originMatcher struct {
	any       bool
	exact     map[string]bool
	wildcards [][2]string // 前缀, 后缀
}

func newOriginMatcher(origins []string) *originMatcher {
	m := &originMatcher{exact: make(map[string]bool)}
	for _, o := range origins {
		switch {
		case o == "*":
			m.any = true
		case strings.Contains(o, "*"):
			parts := strings.SplitN(o, "*", 2)
			m.wildcards = append(m.wildcards, [2]string{parts[0], parts[1]})
		default:
			m.exact[o] = true
		}
	}
	return m
}

func (m *originMatcher) allow(origin string) bool {
	if m.any || m.exact[origin] {
		return true
	}
	for _, w := range m.wildcards {
		// 通配部分不能为空
		if len(origin) > len(w[0])+len(w[1]) && strings.HasPrefix(origin, w[0]) && strings.HasSuffix(origin, w[1]) {
			return true
		}
	}
	return false
}

// CORS 创建 CORS 中间件
// 不允许的源不设置任何 CORS 头，由浏览器拦截
func CORS(cfgs ...*CORSConfig) server.HandlerFunc {
	cfg := DefaultCORSConfig()
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	}

	matcher := newOriginMatcher(cfg.AllowOrigins)
	if cfg.AllowCredentials && matcher.any {
		panic("middleware: CORS AllowCredentials cannot be used with AllowOrigins [\"*\"]")
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *server.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !matcher.allow(origin) {
			c.Next()
			return
		}

		if matcher.any {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if expose != "" {
			c.Header("Access-Control-Expose-Headers", expose)
		}

		if c.Request().Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

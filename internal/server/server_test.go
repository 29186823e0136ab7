package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/fintrack/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoReq struct {
	ID   string `uri:"id"`
	Name string `json:"name" form:"name" binding:"required"`
}

type echoResp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestEngine() *Engine {
	return New(nil, WithMode(gin.TestMode))
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// TestHandleBinding 测试泛型路由绑定与响应
func TestHandleBinding(t *testing.T) {
	e := newTestEngine()
	r := e.Group("/api")
	Handle[echoReq, echoResp](r.PUT, "/items/:id", func(c *Context, req *echoReq) (*echoResp, error) {
		return &echoResp{ID: req.ID, Name: req.Name}, nil
	})
	Handle[echoReq, echoResp](r.GET, "/items", func(c *Context, req *echoReq) (*echoResp, error) {
		return &echoResp{Name: req.Name}, nil
	})

	w, resp := do(t, e.Handler(), http.MethodPut, "/api/items/42", `{"name":"coffee"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.Equal(t, map[string]any{"id": "42", "name": "coffee"}, resp.Data)

	w, resp = do(t, e.Handler(), http.MethodGet, "/api/items?name=tea", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tea", resp.Data.(map[string]any)["name"])

	w, resp = do(t, e.Handler(), http.MethodPut, "/api/items/42", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrBadRequest.Code, resp.Code)
}

// TestRespondError 测试错误响应映射
func TestRespondError(t *testing.T) {
	e := newTestEngine()
	notFound := errors.New(5201, 404, "record not found", nil)
	HandleOnly[any](e.Router().GET, "/biz", func(*Context) (any, error) {
		return nil, notFound.WithError(context.Canceled)
	})
	HandleOnly[any](e.Router().GET, "/plain", func(*Context) (any, error) {
		return nil, context.DeadlineExceeded
	})
	Handle0[struct{}](e.Router().DELETE, "/ok", func(*Context, *struct{}) error { return nil })

	w, resp := do(t, e.Handler(), http.MethodGet, "/biz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 5201, resp.Code)
	assert.Equal(t, "record not found", resp.Message)

	w, resp = do(t, e.Handler(), http.MethodGet, "/plain", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrServer.Code, resp.Code)

	w, resp = do(t, e.Handler(), http.MethodDelete, "/ok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, resp.Data)
}

// TestTraceIDInResponse 测试响应携带 trace_id
func TestTraceIDInResponse(t *testing.T) {
	e := newTestEngine()
	e.Use(func(c *Context) {
		c.SetTraceID("trace-1")
		c.Next()
	})
	e.Router().GET("/t", func(c *Context) { c.Success("ok") })

	_, resp := do(t, e.Handler(), http.MethodGet, "/t", "")
	assert.Equal(t, "trace-1", resp.TraceID)
}

// TestRecovery 测试 panic 恢复
func TestRecovery(t *testing.T) {
	e := newTestEngine()
	e.Router().GET("/panic", func(*Context) { panic("boom") })

	w, resp := do(t, e.Handler(), http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrServer.Code, resp.Code)
}

// TestLoggerMiddleware 测试日志中间件不影响响应
func TestLoggerMiddleware(t *testing.T) {
	e := newTestEngine()
	e.Use(Logger(e.log, "/healthz"))
	e.Router().GET("/healthz", func(c *Context) { c.Nil() })
	e.Router().GET("/x", func(c *Context) { c.Fail(http.StatusTeapot, 418, "teapot") })

	w, _ := do(t, e.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, resp := do(t, e.Handler(), http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "teapot", resp.Message)
}

// TestServeAndShutdown 测试启动与优雅关机
func TestServeAndShutdown(t *testing.T) {
	e := newTestEngine()
	e.Router().GET("/ping", func(c *Context) { c.Success("pong") })

	var hooked atomic.Bool
	e.OnShutdown(func(context.Context) { hooked.Store(true) })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, hooked.Load())
}

// TestWithConfig 测试整体配置覆盖
func TestWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	WithConfig(&Config{Addr: ":9999", ShutdownTimeout: time.Second})(cfg)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, gin.ReleaseMode, cfg.Mode)
}

// TestPrintBanner 测试启动信息包含地址、版本与路由
func TestPrintBanner(t *testing.T) {
	e := New(nil, WithMode(gin.TestMode), WithAddr(":9000"))
	e.Router().GET("/healthz", func(c *Context) { c.Nil() })

	var buf bytes.Buffer
	e.PrintBanner(&buf, "v1.2.3")
	out := buf.String()
	assert.Contains(t, out, "http://127.0.0.1:9000")
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, "/healthz")
	assert.Contains(t, out, `Running in "test" mode.`)
}

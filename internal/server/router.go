package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/fintrack/pkg/errors"
)

// RouterGroup 路由组
type RouterGroup struct {
	group *gin.RouterGroup
}

// Group 创建子路由组
func (rg *RouterGroup) Group(path string, middlewares ...HandlerFunc) *RouterGroup {
	return &RouterGroup{group: rg.group.Group(path, wrapAll(middlewares...)...)}
}

// Use 注册中间件
func (rg *RouterGroup) Use(middlewares ...HandlerFunc) {
	rg.group.Use(wrapAll(middlewares...)...)
}

func (rg *RouterGroup) handle(method, path string, handler HandlerFunc, middlewares []HandlerFunc) {
	handlers := append(wrapAll(middlewares...), wrap(handler))
	rg.group.Handle(method, path, handlers...)
}

// GET 注册 GET 路由
func (rg *RouterGroup) GET(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodGet, path, handler, middlewares)
}

// POST 注册 POST 路由
func (rg *RouterGroup) POST(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodPost, path, handler, middlewares)
}

// PUT 注册 PUT 路由
func (rg *RouterGroup) PUT(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodPut, path, handler, middlewares)
}

// DELETE 注册 DELETE 路由
func (rg *RouterGroup) DELETE(path string, handler HandlerFunc, middlewares ...HandlerFunc) {
	rg.handle(http.MethodDelete, path, handler, middlewares)
}

// Raw 注册原生 http.Handler，用于 /metrics 与 /ws
func (rg *RouterGroup) Raw(method, path string, h http.Handler) {
	rg.group.Handle(method, path, gin.WrapH(h))
}

// RouteRegister 路由注册函数类型
type RouteRegister func(path string, handler HandlerFunc, middlewares ...HandlerFunc)

// Handle 有请求参数，有响应数据
func Handle[Req any, Resp any](register RouteRegister, path string, handler func(*Context, *Req) (*Resp, error), middlewares ...HandlerFunc) {
	register(path, func(c *Context) {
		var req Req
		if err := autoBind(c, &req); err != nil {
			c.RespondError(err)
			return
		}
		resp, err := handler(c, &req)
		if err != nil {
			c.RespondError(err)
			return
		}
		c.Success(resp)
	}, middlewares...)
}

// Handle0 有请求参数，无响应数据
func Handle0[Req any](register RouteRegister, path string, handler func(*Context, *Req) error, middlewares ...HandlerFunc) {
	register(path, func(c *Context) {
		var req Req
		if err := autoBind(c, &req); err != nil {
			c.RespondError(err)
			return
		}
		if err := handler(c, &req); err != nil {
			c.RespondError(err)
			return
		}
		c.Nil()
	}, middlewares...)
}

// HandleOnly 无请求参数，有响应数据
func HandleOnly[Resp any](register RouteRegister, path string, handler func(*Context) (Resp, error), middlewares ...HandlerFunc) {
	register(path, func(c *Context) {
		resp, err := handler(c)
		if err != nil {
			c.RespondError(err)
			return
		}
		c.Success(resp)
	}, middlewares...)
}

// autoBind 根据请求方法选择绑定策略
// 先绑定 URI，GET/DELETE 再绑定 Query，其余按 Content-Type 绑定 body
func autoBind(c *Context, obj any) error {
	// 路由可能没有 URI 参数
	_ = c.ShouldBindUri(obj)

	switch c.Request().Method {
	case http.MethodGet, http.MethodDelete:
		if err := c.ShouldBindQuery(obj); err != nil {
			return errors.ErrBadRequest.WithError(err)
		}
	default:
		if c.Request().ContentLength != 0 {
			if err := c.ShouldBind(obj); err != nil {
				return errors.ErrBadRequest.WithError(err)
			}
		}
	}
	return nil
}

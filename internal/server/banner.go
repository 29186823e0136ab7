package server

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
)

const banner = `
 ┌─┐┬┌┐┌┌┬┐┬─┐┌─┐┌─┐┬┌─   personal finance realtime sync
 ├┤ ││││ │ ├┬┘├─┤│  ├┴┐   open:    %s
 └  ┴┘└┘ ┴ ┴└─┴ ┴└─┘┴ ┴   version: %s
`

// PrintBanner 打印启动信息和路由表
func (e *Engine) PrintBanner(out io.Writer, version string) {
	addr := e.config.Addr
	var open string
	switch {
	case strings.HasPrefix(addr, ":"):
		open = "http://127.0.0.1" + addr
	case strings.Contains(addr, ":"):
		open = "http://" + addr
	default:
		open = "http://127.0.0.1:" + addr
	}

	fPrint(out, banner, open, version)
	fPrint(out, "\n")

	if routes := e.engine.Routes(); len(routes) > 0 {
		printRoutes(out, routes, e.config.Mode)
		fPrint(out, "\n")
	}

	if e.config.Mode == gin.DebugMode {
		fPrint(out, "[fintrack] Running in %q mode. Switch to \"release\" mode in production.\n", e.config.Mode)
	} else {
		fPrint(out, "[fintrack] Running in %q mode.\n", e.config.Mode)
	}
	fPrint(out, "[fintrack] Go version: %s | OS: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// methodColor HTTP 方法对应的 ANSI 颜色
func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return "\033[34m"
	case http.MethodPost:
		return "\033[32m"
	case http.MethodPut:
		return "\033[33m"
	case http.MethodDelete:
		return "\033[31m"
	default:
		return "\033[0m"
	}
}

const resetColor = "\033[0m"

// printRoutes 按路径列对齐打印路由
func printRoutes(out io.Writer, routes gin.RoutesInfo, mode string) {
	width := 0
	for _, r := range routes {
		width = max(width, len(r.Path))
	}
	for _, r := range routes {
		fPrint(out, "[fintrack-%s] %s%-7s%s %-*s --> %s\n",
			mode,
			methodColor(r.Method), r.Method, resetColor,
			width, r.Path,
			r.Handler)
	}
}

func fPrint(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}

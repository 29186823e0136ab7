package request

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
)

const tracerName = "github.com/tokmz/fintrack/pkg/request"

// Call 一次 API 调用
type Call struct {
	Method string
	Path   string
	Query  url.Values
	// Body 非 nil 时按 JSON 编码
	Body any
	// Token 非空时覆盖 TokenSource
	Token string
}

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	TraceID string          `json:"trace_id"`
}

// Client fintrack REST API 客户端，并发安全
type Client struct {
	cfg    *Config
	base   *url.URL
	http   *http.Client
	log    logger.Logger
	retry  *RetryConfig
	tracer trace.Tracer
}

// New 创建客户端
func New(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		log:  cfg.Logger,
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	if cfg.BaseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/")); err == nil {
			c.base = u
		}
	}
	if cfg.Retry != nil {
		rc := cfg.Retry.withDefaults()
		c.retry = &rc
	}
	if cfg.Tracing {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Send 执行调用，成功时把 data 解码到 out，out 为 nil 时丢弃
// 业务失败返回服务端给出的 *errors.Error
func (c *Client) Send(ctx context.Context, call Call, out any) error {
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	target, err := c.resolve(call)
	if err != nil {
		return err
	}
	var body []byte
	if call.Body != nil {
		if body, err = json.Marshal(call.Body); err != nil {
			return ErrEncode.WithError(err)
		}
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "fintrack.api "+call.Method+" "+call.Path,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", call.Method),
				attribute.String("url.full", target),
			),
		)
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	attempts := 1
	if c.retry != nil && idempotent(call.Method) {
		attempts += c.retry.MaxRetries
	}
	for n := 0; n < attempts; n++ {
		if n > 0 {
			wait := c.retry.delay(n - 1)
			c.log.Warn("retry api call",
				zap.String("method", call.Method),
				zap.String("path", call.Path),
				zap.Int("attempt", n),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				err = ErrTimeout.WithError(ctx.Err())
				return err
			case <-timer.C:
			}
		}
		err = c.once(ctx, call, target, body, out)
		if !retryable(err) {
			break
		}
	}
	return err
}

// resolve 拼接完整地址
func (c *Client) resolve(call Call) (string, error) {
	ref, err := url.Parse(call.Path)
	if err != nil {
		return "", ErrInvalidURL.WithError(err)
	}
	var u *url.URL
	switch {
	case ref.IsAbs():
		u = ref
	case c.base != nil:
		joined := *c.base
		joined.Path = c.base.Path + "/" + strings.TrimPrefix(ref.Path, "/")
		joined.RawQuery = ref.RawQuery
		u = &joined
	default:
		return "", ErrInvalidURL.WithMessage("relative path without base url: " + call.Path)
	}
	if len(call.Query) > 0 {
		q := u.Query()
		for k, vs := range call.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) token(call Call) string {
	if call.Token != "" {
		return call.Token
	}
	if c.cfg.TokenSource != nil {
		return c.cfg.TokenSource()
	}
	return ""
}

// once 发送一次请求并解析统一响应结构
func (c *Client) once(ctx context.Context, call Call, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, target, reader)
	if err != nil {
		return ErrInvalidURL.WithError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if tok := c.token(call); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if c.tracer != nil {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return ErrTimeout.WithError(err)
		}
		return ErrTransport.WithError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
	if err != nil {
		return ErrTransport.WithError(err)
	}
	c.log.Debug("api call",
		zap.String("method", call.Method),
		zap.String("path", call.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return decode(resp.StatusCode, raw, out)
}

// decode 解析统一响应结构
func decode(status int, raw []byte, out any) error {
	ok := status >= 200 && status < 300
	if ok && len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Code == 0 {
		if !ok {
			return errors.New(ErrStatus.Code, status, http.StatusText(status)+": "+snippet(raw), nil)
		}
		return ErrDecode.WithError(err)
	}
	if env.Code != http.StatusOK {
		httpCode := status
		if ok {
			httpCode = http.StatusOK
		}
		return errors.New(env.Code, httpCode, env.Message, nil)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return ErrDecode.WithError(err)
	}
	return nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Do 执行调用并返回解码后的 data
func Do[T any](ctx context.Context, c *Client, call Call) (T, error) {
	var out T
	err := c.Send(ctx, call, &out)
	return out, err
}

// Get 查询
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	return Do[T](ctx, c, Call{Method: http.MethodGet, Path: path, Query: query})
}

// Post 创建
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return Do[T](ctx, c, Call{Method: http.MethodPost, Path: path, Body: body})
}

// Put 更新
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return Do[T](ctx, c, Call{Method: http.MethodPut, Path: path, Body: body})
}

// Delete 删除
func Delete(ctx context.Context, c *Client, path string) error {
	return c.Send(ctx, Call{Method: http.MethodDelete, Path: path}, nil)
}

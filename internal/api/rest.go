package api

import (
	"context"

	"github.com/tokmz/fintrack/internal/server"
)

// operations 单类实体的业务入口
type operations[T any] struct {
	list   func(ctx context.Context, userID string) ([]*T, error)
	create func(ctx context.Context, userID string, in *T) (*T, error)
	update func(ctx context.Context, userID, id string, in *T) (*T, error)
	remove func(ctx context.Context, userID, id string) error
}

type idParam struct {
	ID string `uri:"id"`
}

// mountREST 注册 GET|POST {path}，PUT|DELETE {path}/:id
func mountREST[T any](g *server.RouterGroup, path string, ops operations[T]) {
	server.HandleOnly[[]*T](g.GET, path, func(c *server.Context) ([]*T, error) {
		return ops.list(c.RequestContext(), c.UserID())
	})

	server.Handle[T, T](g.POST, path, func(c *server.Context, in *T) (*T, error) {
		return ops.create(c.RequestContext(), c.UserID(), in)
	})

	server.Handle[T, T](g.PUT, path+"/:id", func(c *server.Context, in *T) (*T, error) {
		return ops.update(c.RequestContext(), c.UserID(), c.Param("id"), in)
	})

	server.Handle0[idParam](g.DELETE, path+"/:id", func(c *server.Context, p *idParam) error {
		return ops.remove(c.RequestContext(), c.UserID(), p.ID)
	})
}

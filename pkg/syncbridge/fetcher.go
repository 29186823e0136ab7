package syncbridge

import (
	"context"
	"encoding/json"

	"github.com/tokmz/fintrack/pkg/request"
	"github.com/tokmz/fintrack/pkg/ws"
)

// Fetcher 拉取某类实体的完整列表
type Fetcher interface {
	Fetch(ctx context.Context, entity ws.Entity) ([]json.RawMessage, error)
}

// CollectionPaths 实体对应的 REST 集合路径
var CollectionPaths = map[ws.Entity]string{
	ws.EntityTransaction: "/api/v1/transactions",
	ws.EntityBudget:      "/api/v1/budgets",
	ws.EntitySavingsGoal: "/api/v1/savings-goals",
}

// RESTFetcher 通过 REST 接口拉取
type RESTFetcher struct {
	client *request.Client
	token  func() string
}

// NewRESTFetcher 创建 REST 拉取器，token 为 nil 时使用客户端自身的令牌来源
func NewRESTFetcher(client *request.Client, token func() string) *RESTFetcher {
	return &RESTFetcher{client: client, token: token}
}

// Fetch 实现 Fetcher
func (f *RESTFetcher) Fetch(ctx context.Context, entity ws.Entity) ([]json.RawMessage, error) {
	path, ok := CollectionPaths[entity]
	if !ok {
		return nil, ErrUnknownEvent.WithMessage("unknown entity: " + string(entity))
	}

	call := request.Call{Path: path}
	if f.token != nil {
		call.Token = f.token()
	}
	return request.Do[[]json.RawMessage](ctx, f.client, call)
}

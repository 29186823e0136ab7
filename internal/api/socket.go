package api

import (
	"context"
	"encoding/json"

	"github.com/tokmz/fintrack/internal/model"
	"github.com/tokmz/fintrack/internal/service"
	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/ws"
)

// ErrMissingID 更新或删除消息缺少 id
var ErrMissingID = errors.ErrBadRequest.WithMessage("id is required")

// updateRequest 更新消息的 data：实体字段与 id 同级
type updateRequest[T any] struct {
	ID     string
	Record T
}

func (r *updateRequest[T]) UnmarshalJSON(data []byte) error {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	r.ID = head.ID
	return json.Unmarshal(data, &r.Record)
}

// RegisterSocket 注册实时通道的领域变更消息
// 变更经由同一个 Finance 执行，因此与 REST 变更投递相同的领域事件
func RegisterSocket(r *ws.Router, finance *service.Finance) error {
	return errors.Join(
		mountSocket(r, ws.KindAddTransaction, ws.KindUpdateTransaction, ws.KindDeleteTransaction, operations[model.Transaction]{
			create: finance.CreateTransaction,
			update: finance.UpdateTransaction,
			remove: finance.DeleteTransaction,
		}),
		mountSocket(r, ws.KindAddBudget, ws.KindUpdateBudget, ws.KindDeleteBudget, operations[model.Budget]{
			create: finance.CreateBudget,
			update: finance.UpdateBudget,
			remove: finance.DeleteBudget,
		}),
		mountSocket(r, ws.KindAddSavingsGoal, ws.KindUpdateSavingsGoal, ws.KindDeleteSavingsGoal, operations[model.SavingsGoal]{
			create: finance.CreateSavingsGoal,
			update: finance.UpdateSavingsGoal,
			remove: finance.DeleteSavingsGoal,
		}),
	)
}

func mountSocket[T any](r *ws.Router, add, update, remove ws.InboundKind, ops operations[T]) error {
	return errors.Join(
		ws.Handle[T, T](r, add, func(ctx context.Context, c *ws.Connection, in *T) (*T, error) {
			userID, _ := c.UserID()
			return ops.create(ctx, userID, in)
		}),
		ws.Handle[updateRequest[T], T](r, update, func(ctx context.Context, c *ws.Connection, req *updateRequest[T]) (*T, error) {
			if req.ID == "" {
				return nil, ErrMissingID
			}
			userID, _ := c.UserID()
			return ops.update(ctx, userID, req.ID, &req.Record)
		}),
		ws.Handle[ws.DeletedPayload, ws.DeletedPayload](r, remove, func(ctx context.Context, c *ws.Connection, req *ws.DeletedPayload) (*ws.DeletedPayload, error) {
			if req.ID == "" {
				return nil, ErrMissingID
			}
			userID, _ := c.UserID()
			if err := ops.remove(ctx, userID, req.ID); err != nil {
				return nil, err
			}
			return req, nil
		}),
	)
}

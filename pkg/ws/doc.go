// Package ws implements the server side of the fintrack realtime channel.
//
// # Features
//
//   - Connection registry with a per-user index (multi-tab, multi-device)
//   - Liveness monitor: ping every interval, evict on the second missed pong
//   - Post-connect authentication handshake, retriable on failure
//   - Domain event fan-out to one user or to every authenticated connection
//   - Closed message-kind lookup table with an authentication gate
//   - Prometheus metrics and OpenTelemetry spans per dispatch
//
// # Basic Usage
//
//	hub, err := ws.NewHub(ws.DefaultConfig(), verifier,
//	    ws.WithLogger(log),
//	    ws.WithMetrics(ws.NewPrometheusMetrics("fintrack", nil)),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = hub.Run()
//	defer hub.Shutdown(ctx)
//
//	ws.Handle(hub.Router(), ws.KindAddTransaction,
//	    func(ctx context.Context, c *ws.Connection, req *model.Transaction) (*model.Transaction, error) {
//	        uid, _ := c.UserID()
//	        return svc.CreateTransaction(ctx, uid, req)
//	    })
//
//	engine.GET("/ws", gin.WrapH(hub))
//
// # Wire Protocol
//
// Frames are JSON objects discriminated by "type" (or "event").
//
// Inbound: authenticate{token}, ping, and the domain mutations
// addTransaction, updateTransaction, deleteTransaction, addBudget,
// updateBudget, deleteBudget, addSavingsGoal, updateSavingsGoal and
// deleteSavingsGoal. Mutations carry "requestId" and "data".
//
// Outbound: welcome{connectionId}, authenticated{userId},
// unauthorized{message}, error{message, requestId}, pong,
// ack{requestId, data} and the domain events
// {transaction|budget|savingsGoal}:{added|updated|deleted}{payload}.
//
// Only authenticate and ping are accepted before authentication.
// A rejected authenticate leaves the connection open.
//
// # Delivery
//
// Dispatch is at-most-once per open connection. Each connection has a
// bounded send queue drained by a single writer goroutine, so frames
// for one connection keep their order. A closed connection or full
// queue counts as a drop; clients recover through a full resync after
// reconnecting.
package ws

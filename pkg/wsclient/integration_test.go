package wsclient

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/fintrack/pkg/ws"
)

// TestSessionAgainstHub 测试会话与服务端 Hub 的完整交互
func TestSessionAgainstHub(t *testing.T) {
	verifier := ws.TokenVerifierFunc(func(_ context.Context, token string) (string, error) {
		if token == "T" {
			return "u1", nil
		}
		return "", ws.ErrUnauthenticated.WithMessage("invalid token")
	})
	hub, err := ws.NewHub(ws.DefaultConfig(), verifier)
	require.NoError(t, err)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	}()

	cfg := testConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Disconnect()

	var mu sync.Mutex
	var payloads []string
	s.On("transaction:added", func(msg *Message) {
		mu.Lock()
		payloads = append(payloads, string(msg.Payload))
		mu.Unlock()
	})

	require.NoError(t, s.Connect(context.Background()))
	waitStatus(t, s, StatusAuthenticated)
	assert.NotEmpty(t, s.ConnectionID())

	n, err := hub.Dispatcher().DispatchToUser(context.Background(), "u1", ws.Event{
		Kind:    ws.NewEventKind(ws.EntityTransaction, ws.ActionAdded),
		Payload: map[string]string{"id": "t1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(payloads) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"id":"t1"}`, payloads[0])
}

package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/fintrack/pkg/errors"
)

var errTokenExpired = errors.New(6002, 401, "token expired", nil)

func testVerifier() TokenVerifier {
	return TokenVerifierFunc(func(_ context.Context, token string) (string, error) {
		switch token {
		case "T":
			return "u1", nil
		case "T2":
			return "u2", nil
		case "expired":
			return "", errTokenExpired
		}
		return "", errors.ErrUnauthorized.WithMessage("invalid token")
	})
}

// TestAuthenticatorSuccess 测试认证成功
func TestAuthenticatorSuccess(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	a := NewAuthenticator(r, testVerifier(), nil, nil)
	c, ft := newTestConn(t, r)

	uid, err := a.Handle(context.Background(), c, "T")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	assert.True(t, c.Authenticated())

	f := ft.last(t)
	assert.Equal(t, TypeAuthenticated, f.Type)
	assert.Equal(t, "u1", f.UserID)
}

// TestAuthenticatorRejects 测试认证失败回复 unauthorized 且不关闭连接
func TestAuthenticatorRejects(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", "missing token"},
		{"expired", "expired", "token expired"},
		{"invalid", "garbage", "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(10, nil, nil)
			a := NewAuthenticator(r, testVerifier(), nil, nil)
			c, ft := newTestConn(t, r)

			_, err := a.Handle(context.Background(), c, tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			assert.False(t, c.Authenticated())
			assert.False(t, ft.isClosed())

			f := ft.last(t)
			assert.Equal(t, TypeUnauthorized, f.Type)
			assert.Equal(t, tt.message, f.Message)
		})
	}
}

// TestAuthenticatorRetry 测试失败后可用新令牌重试
func TestAuthenticatorRetry(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	a := NewAuthenticator(r, testVerifier(), nil, nil)
	c, ft := newTestConn(t, r)

	_, err := a.Handle(context.Background(), c, "expired")
	require.Error(t, err)

	uid, err := a.Handle(context.Background(), c, "T")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	frames := ft.decoded(t)
	require.Len(t, frames, 2)
	assert.Equal(t, TypeUnauthorized, frames[0].Type)
	assert.Equal(t, TypeAuthenticated, frames[1].Type)
}

// TestAuthenticatorClosedConnection 测试连接已移除时认证失败
func TestAuthenticatorClosedConnection(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	a := NewAuthenticator(r, testVerifier(), nil, nil)
	c, _ := newTestConn(t, r)
	r.Remove(c.ID)

	_, err := a.Handle(context.Background(), c, "T")
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Empty(t, r.FindByUser("u1"))
}

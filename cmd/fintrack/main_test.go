package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/fintrack/internal/auth"
)

// TestSocketURLFor 测试实时通道地址推导
func TestSocketURLFor(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://127.0.0.1:8080", "ws://127.0.0.1:8080/ws"},
		{"https://api.fintrack.dev/", "wss://api.fintrack.dev/ws"},
		{"https://api.fintrack.dev/prefix", "wss://api.fintrack.dev/prefix/ws"},
	}
	for _, tt := range tests {
		got, err := socketURLFor(tt.server)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

// TestTokenCmd 测试签发的令牌可被校验
func TestTokenCmd(t *testing.T) {
	const secret = "cmd-secret-0123456789"
	t.Setenv("FINTRACK_AUTH_SECRET", secret)

	path := ""
	cmd := tokenCmd(&path)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--user", "u1", "--ttl", "1h"})
	require.NoError(t, cmd.Execute())

	cfg := auth.DefaultConfig()
	cfg.Secret = secret
	tokens, err := auth.New(cfg)
	require.NoError(t, err)
	userID, err := tokens.Verify(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

// TestTokenCmdRequiresUser 测试缺少 --user
func TestTokenCmdRequiresUser(t *testing.T) {
	path := ""
	cmd := tokenCmd(&path)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}

// TestVersionCmd 测试版本输出
func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}

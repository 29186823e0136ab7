package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(conns []*Connection) []string {
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.ID)
	}
	return out
}

// TestRegistryRegister 测试新连接未认证且存活
func TestRegistryRegister(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	c, _ := newTestConn(t, r)

	assert.NotEmpty(t, c.ID)
	assert.False(t, c.Authenticated())
	assert.True(t, c.IsAlive())
	assert.False(t, c.ConnectedAt.IsZero())
	assert.Equal(t, 1, r.Count())
	assert.Empty(t, r.AllAuthenticated())

	got, ok := r.Get(c.ID)
	require.True(t, ok)
	assert.Same(t, c, got)
}

// TestRegistryMaxConnections 测试连接数上限
func TestRegistryMaxConnections(t *testing.T) {
	r := NewRegistry(2, nil, nil)
	newTestConn(t, r)
	newTestConn(t, r)

	_, err := r.Register(&fakeTransport{})
	assert.ErrorIs(t, err, ErrTooManyConnections)
	assert.Equal(t, 2, r.Count())
}

// TestRegistryAuthenticate 测试身份绑定与用户索引
func TestRegistryAuthenticate(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	a1, _ := newTestConn(t, r)
	a2, _ := newTestConn(t, r)
	b, _ := newTestConn(t, r)
	anon, _ := newTestConn(t, r)

	require.NoError(t, r.Authenticate(a1.ID, "u1"))
	require.NoError(t, r.Authenticate(a2.ID, "u1"))
	require.NoError(t, r.Authenticate(b.ID, "u2"))

	uid, ok := a1.UserID()
	assert.True(t, ok)
	assert.Equal(t, "u1", uid)

	assert.ElementsMatch(t, []string{a1.ID, a2.ID}, ids(r.FindByUser("u1")))
	assert.ElementsMatch(t, []string{b.ID}, ids(r.FindByUser("u2")))
	assert.Empty(t, r.FindByUser("u3"))
	assert.ElementsMatch(t, []string{a1.ID, a2.ID, b.ID}, ids(r.AllAuthenticated()))
	assert.NotContains(t, ids(r.AllAuthenticated()), anon.ID)
	assert.Equal(t, 3, r.AuthenticatedCount())
}

// TestRegistryReauthenticate 测试重新认证为其他用户时迁移索引
func TestRegistryReauthenticate(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	c, _ := newTestConn(t, r)

	require.NoError(t, r.Authenticate(c.ID, "u1"))
	require.NoError(t, r.Authenticate(c.ID, "u2"))

	assert.Empty(t, r.FindByUser("u1"))
	assert.ElementsMatch(t, []string{c.ID}, ids(r.FindByUser("u2")))
}

// TestRegistryAuthenticateUnknown 测试已关闭连接的认证
func TestRegistryAuthenticateUnknown(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	err := r.Authenticate("missing", "u1")
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Empty(t, r.FindByUser("u1"))

	c, _ := newTestConn(t, r)
	assert.ErrorIs(t, r.Authenticate(c.ID, ""), ErrUnauthenticated)
	assert.False(t, c.Authenticated())
}

// TestRegistryRemoveIdempotent 测试重复移除
func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	c, _ := newTestConn(t, r)
	other, _ := newTestConn(t, r)
	require.NoError(t, r.Authenticate(c.ID, "u1"))
	require.NoError(t, r.Authenticate(other.ID, "u1"))

	assert.True(t, r.Remove(c.ID))
	first := ids(r.FindByUser("u1"))
	count := r.Count()

	assert.False(t, r.Remove(c.ID))
	assert.Equal(t, first, ids(r.FindByUser("u1")))
	assert.Equal(t, count, r.Count())
	assert.ElementsMatch(t, []string{other.ID}, first)

	_, ok := r.Get(c.ID)
	assert.False(t, ok)
}

// TestRegistryFindByUserSequence 测试任意注册、认证、移除序列后的用户索引
func TestRegistryFindByUserSequence(t *testing.T) {
	r := NewRegistry(100, nil, nil)
	want := map[string]map[string]bool{}
	var conns []*Connection

	for i := 0; i < 20; i++ {
		c, _ := newTestConn(t, r)
		conns = append(conns, c)
		user := []string{"u1", "u2", "u3"}[i%3]
		if i%4 != 0 {
			require.NoError(t, r.Authenticate(c.ID, user))
			if want[user] == nil {
				want[user] = map[string]bool{}
			}
			want[user][c.ID] = true
		}
	}
	for i, c := range conns {
		if i%5 == 0 {
			r.Remove(c.ID)
			r.Remove(c.ID)
			for _, set := range want {
				delete(set, c.ID)
			}
		}
	}

	for _, user := range []string{"u1", "u2", "u3"} {
		var expected []string
		for id := range want[user] {
			expected = append(expected, id)
		}
		assert.ElementsMatch(t, expected, ids(r.FindByUser(user)), user)
	}
}

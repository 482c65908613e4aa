package identity

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user:alice", User("alice").Partition())
	assert.Equal(t, "session:abc", Anonymous("abc").Partition())
	assert.Equal(t, "session:local", Anonymous("").Partition())
	assert.Equal(t, "user:alice", Identity{UserID: "alice", SessionID: "abc"}.Partition())
	assert.NotEqual(t, User("x").Partition(), Anonymous("x").Partition())
}

func TestSession_ChangesNotifyListeners(t *testing.T) {
	t.Parallel()

	s := NewSession(Anonymous("s1"))
	var (
		mu   sync.Mutex
		seen []string
	)
	unsubscribe := s.Subscribe(func(id Identity) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id.Partition())
	})

	s.SignIn("alice")
	uid, ok := s.CurrentUserID()
	assert.True(t, ok)
	assert.Equal(t, "alice", uid)
	assert.Equal(t, "s1", s.Current().SessionID, "session id survives sign in")

	s.SignIn("alice") // no change, no notification
	s.SignOut()
	_, ok = s.CurrentUserID()
	assert.False(t, ok)

	unsubscribe()
	s.SignIn("bob")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"user:alice", "session:s1"}, seen)
}

func TestJWTResolver(t *testing.T) {
	t.Parallel()

	r := NewJWTResolver("test-secret")
	token, err := r.Issue("alice", time.Hour)
	require.NoError(t, err)

	id, err := r.Resolve("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, User("alice"), id)
}

func TestJWTResolver_UserIDClaim(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "bob"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	id, err := NewJWTResolver("test-secret").Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", id.UserID)
}

func TestJWTResolver_Rejects(t *testing.T) {
	t.Parallel()

	good := NewJWTResolver("test-secret")
	expired, err := good.Issue("alice", -time.Minute)
	require.NoError(t, err)
	foreign, err := NewJWTResolver("other-secret").Issue("alice", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "x"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		resolver *JWTResolver
		token    string
	}{
		{"expired", good, expired},
		{"wrong secret", good, foreign},
		{"no subject", good, noSubject},
		{"garbage", good, "not-a-token"},
		{"disabled", NewJWTResolver(""), expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.resolver.Resolve(tt.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

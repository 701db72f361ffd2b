package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/credential"
	"github.com/nhle/pmsterm/tests/testutil"
)

const host = "pms.test"

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func profileRoute(fake *testutil.FakeAPI) {
	fake.Reply(http.MethodGet, "/api/users/profile", http.StatusOK, map[string]interface{}{
		"_id": "u1", "username": "ana", "email": "ana@corp.io", "role": "2", "department": "3",
	})
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{"id": "u1", "exp": exp.Unix()})

	c, err := ParseClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.True(t, exp.Equal(c.ExpiresAt))
	assert.False(t, c.Expired(time.Now()))

	_, err = ParseClaims("opaque-token")
	assert.Error(t, err)
}

func TestRestore_NoToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m := NewManager(credential.NewMemory(), host, api.NewClient(fake.URL()))

	_, err := m.Restore(context.Background())

	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Empty(t, fake.Requests())
}

func TestRestore_ValidToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	tok := signed(t, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	fake.RequireToken(tok)
	profileRoute(fake)

	store := credential.NewMemory()
	require.NoError(t, store.Set(credential.SessionKey(host), tok))
	m := NewManager(store, host, api.NewClient(fake.URL()))

	s, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", s.User.Username)
	assert.Equal(t, "u1", s.Claims.UserID)
	assert.Equal(t, tok, m.Client(s).Token())
}

func TestRestore_ExpiredTokenIsClearedWithoutRequest(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	store := credential.NewMemory()
	tok := signed(t, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, store.Set(credential.SessionKey(host), tok))
	m := NewManager(store, host, api.NewClient(fake.URL()))

	_, err := m.Restore(context.Background())

	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Empty(t, fake.Requests())
	_, err = store.Get(credential.SessionKey(host))
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestRestore_RejectedTokenIsCleared(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.RequireToken("current")
	profileRoute(fake)
	store := credential.NewMemory()
	require.NoError(t, store.Set(credential.SessionKey(host), "revoked"))
	m := NewManager(store, host, api.NewClient(fake.URL()))

	_, err := m.Restore(context.Background())

	assert.ErrorIs(t, err, ErrLoginRequired)
	_, err = store.Get(credential.SessionKey(host))
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestRestore_ServerErrorKeepsToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Reply(http.MethodGet, "/api/users/profile", http.StatusInternalServerError, map[string]string{"message": "db down"})
	store := credential.NewMemory()
	require.NoError(t, store.Set(credential.SessionKey(host), "opaque"))
	m := NewManager(store, host, api.NewClient(fake.URL()))

	_, err := m.Restore(context.Background())

	assert.ErrorIs(t, err, ErrLoginRequired)
	got, err := store.Get(credential.SessionKey(host))
	require.NoError(t, err)
	assert.Equal(t, "opaque", got)
}

func TestLoginAndLogout(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Reply(http.MethodPost, "/api/auth/login", http.StatusOK, map[string]interface{}{
		"token": "opaque-123",
		"user":  map[string]interface{}{"_id": "u1", "username": "ana", "role": 3},
	})
	store := credential.NewMemory()
	m := NewManager(store, host, api.NewClient(fake.URL()))

	s, err := m.Login(context.Background(), "ana@corp.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "opaque-123", s.Token)
	assert.Empty(t, s.Claims.UserID)

	stored, err := store.Get(credential.SessionKey(host))
	require.NoError(t, err)
	assert.Equal(t, "opaque-123", stored)

	require.NoError(t, m.Logout())
	_, err = store.Get(credential.SessionKey(host))
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestLogin_BadCredentials(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Reply(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
	m := NewManager(credential.NewMemory(), host, api.NewClient(fake.URL()))

	_, err := m.Login(context.Background(), "x@y.z", "bad")

	assert.True(t, api.IsAuthError(err))
}

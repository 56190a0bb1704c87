package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/storefront-client/internal/backend"
	"github.com/rx3lixir/storefront-client/internal/session"
	"github.com/rx3lixir/storefront-client/internal/store"
	"github.com/rx3lixir/storefront-client/pkg/logger"
)

func newManager(t *testing.T, handler http.Handler) (*session.Manager, *store.MemStore) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	storage := store.NewMemStore()
	auth := backend.NewAuthClient(srv.Client(), srv.URL)

	return session.NewManager(context.Background(), auth, storage, logger.Nop()), storage
}

func authResponse() backend.AuthResponse {
	return backend.AuthResponse{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         backend.User{ID: 1, Email: "user@example.com", Name: "User", Role: backend.RoleCustomer},
	}
}

func TestLoginStoresSessionAtomically(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req backend.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "user@example.com", req.Email)

		json.NewEncoder(w).Encode(authResponse())
	})

	m, storage := newManager(t, mux)
	ctx := context.Background()

	user, err := m.Login(ctx, "user@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "user@example.com", user.Email)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "access-1", m.AccessToken())
	assert.False(t, m.IsAdmin())

	var token string
	require.NoError(t, storage.Get(ctx, store.KeyAccessToken, &token))
	assert.Equal(t, "access-1", token)

	token = ""
	require.NoError(t, storage.Get(ctx, store.KeyRefreshToken, &token))
	assert.Equal(t, "refresh-1", token)

	var saved backend.User
	require.NoError(t, storage.Get(ctx, store.KeyCurrentUser, &saved))
	assert.Equal(t, user.Email, saved.Email)
}

func TestLoginInvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	m, _ := newManager(t, mux)

	_, err := m.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.False(t, m.IsAuthenticated())
}

func TestLoginUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	storage := store.NewMemStore()
	auth := backend.NewAuthClient(&http.Client{Timeout: time.Second}, srv.URL)
	m := session.NewManager(context.Background(), auth, storage, logger.Nop())

	_, err := m.Login(context.Background(), "user@example.com", "secret")
	assert.ErrorIs(t, err, backend.ErrUnreachable)
}

func TestLogoutIsOptimistic(t *testing.T) {
	revoked := make(chan string, 1)
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(authResponse())
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		// Отзыв подвисает, пока тест не проверит, что локальная
		// очистка его не ждала
		<-release
		revoked <- body["refreshToken"]
	})

	m, storage := newManager(t, mux)
	ctx := context.Background()

	_, err := m.Login(ctx, "user@example.com", "secret")
	require.NoError(t, err)

	var hookCalls int32
	m.OnLogout(func() { atomic.AddInt32(&hookCalls, 1) })

	m.Logout(ctx)

	// Локальное состояние очищено синхронно, до завершения отзыва
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))

	var token string
	assert.ErrorIs(t, storage.Get(ctx, store.KeyAccessToken, &token), store.ErrNotFound)
	assert.ErrorIs(t, storage.Get(ctx, store.KeyRefreshToken, &token), store.ErrNotFound)

	close(release)

	select {
	case got := <-revoked:
		assert.Equal(t, "refresh-1", got)
	case <-time.After(2 * time.Second):
		t.Fatal("backend revocation was never attempted")
	}
}

func TestRefreshSuccessRotatesTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.AuthResponse{
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			User:         authResponse().User,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	storage := store.NewMemStore()
	require.NoError(t, storage.Set(ctx, store.KeyAccessToken, "access-1"))
	require.NoError(t, storage.Set(ctx, store.KeyRefreshToken, "refresh-1"))

	auth := backend.NewAuthClient(srv.Client(), srv.URL)
	m := session.NewManager(ctx, auth, storage, logger.Nop())

	token, err := m.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, "access-2", m.AccessToken())

	var saved string
	require.NoError(t, storage.Get(ctx, store.KeyRefreshToken, &saved))
	assert.Equal(t, "refresh-2", saved)
}

func TestRefreshFailureClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(authResponse())
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"refresh token revoked"}`))
	})

	m, storage := newManager(t, mux)
	ctx := context.Background()

	_, err := m.Login(ctx, "user@example.com", "secret")
	require.NoError(t, err)

	_, err = m.RefreshToken(ctx)
	require.Error(t, err)

	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())

	var token string
	assert.ErrorIs(t, storage.Get(ctx, store.KeyRefreshToken, &token), store.ErrNotFound)
}

func TestRefreshWithoutSession(t *testing.T) {
	m, _ := newManager(t, http.NewServeMux())

	_, err := m.RefreshToken(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestRestoreFromStorage(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemStore()
	require.NoError(t, storage.Set(ctx, store.KeyAccessToken, "access-1"))
	require.NoError(t, storage.Set(ctx, store.KeyRefreshToken, "refresh-1"))
	require.NoError(t, storage.Set(ctx, store.KeyCurrentUser, backend.User{ID: 2, Email: "admin@example.com", Role: backend.RoleAdmin}))

	auth := backend.NewAuthClient(http.DefaultClient, "http://127.0.0.1:0")
	m := session.NewManager(ctx, auth, storage, logger.Nop())

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "access-1", m.AccessToken())
	assert.True(t, m.IsAdmin())

	user := m.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "admin@example.com", user.Email)
}

func TestSubscribeDeliversLatestValue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(authResponse())
	})

	m, _ := newManager(t, mux)
	ctx := context.Background()

	// Подписчик до входа получает отсутствие пользователя
	ch := m.Subscribe()
	assert.Nil(t, <-ch)

	_, err := m.Login(ctx, "user@example.com", "secret")
	require.NoError(t, err)

	select {
	case user := <-ch:
		require.NotNil(t, user)
		assert.Equal(t, "user@example.com", user.Email)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the signed-in user")
	}

	// Поздний подписчик сразу видит текущее состояние
	late := m.Subscribe()
	user := <-late
	require.NotNil(t, user)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestCurrentUserReturnsCopy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(authResponse())
	})

	m, _ := newManager(t, mux)

	_, err := m.Login(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	first := m.CurrentUser()
	first.Email = "mutated@example.com"

	assert.Equal(t, "user@example.com", m.CurrentUser().Email)
}

func TestRestoreIgnoresCorruptUser(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemStore()
	require.NoError(t, storage.Set(ctx, store.KeyAccessToken, "access-1"))
	// current_user хранит не тот тип
	require.NoError(t, storage.Set(ctx, store.KeyCurrentUser, "garbage"))

	auth := backend.NewAuthClient(http.DefaultClient, "http://127.0.0.1:0")
	m := session.NewManager(ctx, auth, storage, logger.Nop())

	assert.True(t, m.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())
}

func TestLogoutWithoutRefreshTokenSkipsRevocation(t *testing.T) {
	var logoutCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logoutCalls, 1)
	})

	m, _ := newManager(t, mux)
	m.Logout(context.Background())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&logoutCalls))
	assert.False(t, m.IsAuthenticated())
}

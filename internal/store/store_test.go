package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionRecord struct {
	OrderID      int64   `json:"orderId"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
}

func TestMemStoreRoundTrip(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	in := sessionRecord{OrderID: 7, ClientSecret: "cs_x", Amount: 42}
	require.NoError(t, s.Set(ctx, KeyPendingPayment, in))

	var out sessionRecord
	require.NoError(t, s.Get(ctx, KeyPendingPayment, &out))
	assert.Equal(t, in, out)
}

func TestMemStoreOverwrite(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyAccessToken, "first"))
	require.NoError(t, s.Set(ctx, KeyAccessToken, "second"))

	var token string
	require.NoError(t, s.Get(ctx, KeyAccessToken, &token))
	assert.Equal(t, "second", token)
}

func TestMemStoreMissingKey(t *testing.T) {
	s := NewMemStore()

	var v string
	err := s.Get(context.Background(), "missing", &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreDelete(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyRefreshToken, "refresh-1"))
	require.NoError(t, s.Delete(ctx, KeyRefreshToken))

	var token string
	assert.ErrorIs(t, s.Get(ctx, KeyRefreshToken, &token), ErrNotFound)

	// Повторное удаление не является ошибкой
	assert.NoError(t, s.Delete(ctx, KeyRefreshToken))
}

func TestMemStoreTypeMismatch(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyCurrentUser, "just a string"))

	var out sessionRecord
	err := s.Get(ctx, KeyCurrentUser, &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

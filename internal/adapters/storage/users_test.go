package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserStore_AuthenticateUnknownToken(t *testing.T) {
	s := openTestStorage(t)
	_, _, err := s.Users().Authenticate(context.Background(), "nope")
	require.Error(t, err)
}

func TestUserStore_AuthenticateMissingToken(t *testing.T) {
	s := openTestStorage(t)
	_, _, err := s.Users().Authenticate(context.Background(), "")
	require.Error(t, err)
}

func TestUserStore_UpsertThenAuthenticate(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Users().Upsert(ctx, "tok-123", "trader@example.com", "Trader One", "admin"))

	email, isAdmin, err := s.Users().Authenticate(ctx, "tok-123")
	require.NoError(t, err)
	require.Equal(t, "trader@example.com", email)
	require.True(t, isAdmin)
}

func TestUserStore_UpsertOverwritesExisting(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Users().Upsert(ctx, "tok-123", "trader@example.com", "Trader One", "user"))
	require.NoError(t, s.Users().Upsert(ctx, "tok-123", "trader@example.com", "Trader One", "admin"))

	_, isAdmin, err := s.Users().Authenticate(ctx, "tok-123")
	require.NoError(t, err)
	require.True(t, isAdmin)
}

func TestUserStore_DisplayNameFallsBackToEmail(t *testing.T) {
	s := openTestStorage(t)
	require.Equal(t, "ghost@example.com", s.Users().DisplayName("ghost@example.com"))
}

func TestUserStore_DisplayNameResolvesName(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Users().Upsert(ctx, "tok-123", "trader@example.com", "Trader One", "user"))
	require.Equal(t, "Trader One", s.Users().DisplayName("trader@example.com"))
}

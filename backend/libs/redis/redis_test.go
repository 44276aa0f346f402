package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClientPings(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), Options{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClientEmptyAddr(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Options{Addr: "  "})
	assert.ErrorIs(t, err, ErrEmptyAddr)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisClient(context.Background(), Options{Addr: addr})
	assert.Error(t, err)
}

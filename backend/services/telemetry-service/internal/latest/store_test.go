package latest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

func sample(device string, temp float64, at time.Time) models.Measurement {
	return models.Measurement{ID: 1, DeviceID: device, Time: at, Readings: models.Readings{AirTemp: &temp}}
}

var ts = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := ts
	s := NewMemoryStore(24 * time.Hour)
	s.now = func() time.Time { return now }

	none, err := s.Get(ctx, "gh-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.Put(ctx, sample("gh-1", 20, ts)))
	require.NoError(t, s.Put(ctx, sample("gh-1", 21, ts.Add(time.Minute))))
	now = ts.Add(time.Hour)
	require.NoError(t, s.Put(ctx, sample("gh-2", 25, now)))

	got, err := s.Get(ctx, "gh-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 21, *got.AirTemp, 1e-9)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	now = ts.Add(24*time.Hour + time.Minute)
	expired, err := s.Get(ctx, "gh-1")
	require.NoError(t, err)
	assert.Nil(t, expired)

	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "gh-2")
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewRedisStore(client, 24*time.Hour)
	s.now = func() time.Time { return ts }
	return s, srv
}

func TestRedisStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, srv := newRedisStore(t)

	none, err := s.Get(ctx, "gh-1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.Put(ctx, sample("gh-1", 22.5, ts)))
	assert.True(t, srv.Exists("greenhouse:latest:gh-1"))
	assert.Equal(t, 24*time.Hour, srv.TTL("greenhouse:latest:gh-1"))

	got, err := s.Get(ctx, "gh-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "gh-1", got.DeviceID)
	assert.True(t, got.Time.Equal(ts))
	require.NotNil(t, got.AirTemp)
	assert.InDelta(t, 22.5, *got.AirTemp, 1e-9)
	assert.Nil(t, got.Soil)
}

func TestRedisStoreAllAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, srv := newRedisStore(t)

	require.NoError(t, s.Put(ctx, sample("gh-1", 20, ts)))
	require.NoError(t, s.Put(ctx, sample("gh-2", 21, ts)))
	require.NoError(t, srv.Set("unrelated", "x"))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "gh-1")
	assert.Contains(t, all, "gh-2")

	srv.FastForward(25 * time.Hour)
	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoresSkipExpiredSamples(t *testing.T) {
	ctx := context.Background()
	old := sample("gh-old", 20, ts.Add(-25*time.Hour))

	rs, srv := newRedisStore(t)
	require.NoError(t, rs.Put(ctx, old))
	assert.False(t, srv.Exists("greenhouse:latest:gh-old"))

	ms := NewMemoryStore(24 * time.Hour)
	ms.now = func() time.Time { return ts }
	require.NoError(t, ms.Put(ctx, old))
	all, err := ms.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	recent := sample("gh-1", 20, ts.Add(-23*time.Hour))
	require.NoError(t, rs.Put(ctx, recent))
	assert.Equal(t, time.Hour, srv.TTL("greenhouse:latest:gh-1"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, srv := newRedisStore(t)
	srv.Close()

	err := s.Put(context.Background(), sample("gh-1", 20, ts))
	assert.Error(t, err)
}

func TestStoresKeepNewerEntry(t *testing.T) {
	ctx := context.Background()
	rs, _ := newRedisStore(t)
	ms := NewMemoryStore(24 * time.Hour)
	ms.now = func() time.Time { return ts }

	for name, s := range map[string]Store{"redis": rs, "memory": ms} {
		fresh := sample("gh-1", 25, ts.Add(-time.Minute))
		fresh.ID = 2
		stale := sample("gh-1", 20, ts.Add(-2*time.Minute))

		require.NoError(t, s.Put(ctx, fresh), name)
		require.NoError(t, s.Put(ctx, stale), name)

		got, err := s.Get(ctx, "gh-1")
		require.NoError(t, err, name)
		require.NotNil(t, got, name)
		assert.Equal(t, int64(2), got.ID, name)
		assert.InDelta(t, 25, *got.AirTemp, 1e-9, name)
	}
}

func TestStoresOrderSameInstantByID(t *testing.T) {
	ctx := context.Background()
	rs, _ := newRedisStore(t)
	ms := NewMemoryStore(0)

	for name, s := range map[string]Store{"redis": rs, "memory": ms} {
		second := sample("gh-1", 21, ts)
		second.ID = 8
		first := sample("gh-1", 20, ts)
		first.ID = 7

		require.NoError(t, s.Put(ctx, second), name)
		require.NoError(t, s.Put(ctx, first), name)

		got, err := s.Get(ctx, "gh-1")
		require.NoError(t, err, name)
		require.NotNil(t, got, name)
		assert.Equal(t, int64(8), got.ID, name)
	}
}

func TestRedisStoreReplacesLegacyEntry(t *testing.T) {
	ctx := context.Background()
	s, srv := newRedisStore(t)
	require.NoError(t, srv.Set("greenhouse:latest:gh-1", `{"id":99,"device_id":"gh-1","time":"2024-05-01T13:00:00Z"}`))

	require.NoError(t, s.Put(ctx, sample("gh-1", 20, ts)))

	got, err := s.Get(ctx, "gh-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

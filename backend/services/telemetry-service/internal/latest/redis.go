package latest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

const (
	keyPrefix = "greenhouse:latest:"
	scanCount = 200
)

// RedisStore keeps latest readings under greenhouse:latest:<device_id> so
// several telemetry replicas share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore returns redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) key(deviceID string) string {
	return keyPrefix + deviceID
}

// putScript replaces the entry only when the stored rank is not greater than
// the new one. Entries without a rank are always replaced.
var putScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, doc = pcall(cjson.decode, cur)
	if ok and type(doc) == 'table' and type(doc.rank) == 'string' and doc.rank > ARGV[1] then
		return 0
	end
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// redisEntry is the stored form; rank orders samples of one device.
type redisEntry struct {
	Rank string `json:"rank"`
	models.Measurement
}

// rank sorts as a string in the same order newer does.
func rank(m models.Measurement) string {
	nanos := int64(0)
	if !m.Time.IsZero() && m.Time.Unix() > 0 {
		nanos = m.Time.UnixNano()
	}
	return fmt.Sprintf("%020d:%020d", nanos, m.ID)
}

// Put stores m with the TTL that remains since its measurement time. A newer
// entry already stored for the device is kept.
func (s *RedisStore) Put(ctx context.Context, m models.Measurement) error {
	ttl := s.ttl
	if ttl > 0 && !m.Time.IsZero() {
		ttl -= s.now().Sub(m.Time)
		if ttl <= 0 {
			return nil
		}
	}
	r := rank(m)
	data, err := json.Marshal(redisEntry{Rank: r, Measurement: m})
	if err != nil {
		return err
	}
	if err := putScript.Run(ctx, s.client, []string{s.key(m.DeviceID)}, r, data, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("latest: put %s: %w", m.DeviceID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, deviceID string) (*models.Measurement, error) {
	raw, err := s.client.Get(ctx, s.key(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest: get %s: %w", deviceID, err)
	}
	var m models.Measurement
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("latest: decode %s: %w", deviceID, err)
	}
	return &m, nil
}

func (s *RedisStore) All(ctx context.Context) (map[string]models.Measurement, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("latest: scan: %w", err)
	}

	out := make(map[string]models.Measurement, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("latest: mget: %w", err)
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		var m models.Measurement
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, fmt.Errorf("latest: decode %s: %w", keys[i], err)
		}
		out[strings.TrimPrefix(keys[i], keyPrefix)] = m
	}
	return out, nil
}

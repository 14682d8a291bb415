// Package redisrepo stores devices in Redis: one JSON value per device and a
// sorted set whose scores record insertion order.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/catalog-service/internal/domain"
)

// saveScript writes the value and indexes the id only on first insert, so
// replacing a device keeps its position.
var saveScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[2])
if not redis.call('ZSCORE', KEYS[2], ARGV[1]) then
  local seq = redis.call('INCR', KEYS[3])
  redis.call('ZADD', KEYS[2], seq, ARGV[1])
end
return 1
`)

type Repo struct {
	client redis.UniversalClient
	prefix string
}

// New wraps client; prefix namespaces every key (default "catalog").
func New(client redis.UniversalClient, prefix string) *Repo {
	if prefix == "" {
		prefix = "catalog"
	}
	return &Repo{client: client, prefix: prefix}
}

func (r *Repo) deviceKey(id string) string { return r.prefix + ":device:" + id }
func (r *Repo) indexKey() string          { return r.prefix + ":devices" }
func (r *Repo) seqKey() string            { return r.prefix + ":seq" }

func (r *Repo) List(ctx context.Context) ([]domain.Device, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: listing index: %w", err)
	}
	out := make([]domain.Device, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.deviceKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: loading devices: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// deleted between ZRANGE and MGET
			continue
		}
		d, err := decode(s)
		if err != nil {
			return nil, fmt.Errorf("redis: decoding %q: %w", ids[i], err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (domain.Device, bool, error) {
	s, err := r.client.Get(ctx, r.deviceKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Device{}, false, nil
	}
	if err != nil {
		return domain.Device{}, false, fmt.Errorf("redis: get device: %w", err)
	}
	d, err := decode(s)
	if err != nil {
		return domain.Device{}, false, fmt.Errorf("redis: decoding %q: %w", id, err)
	}
	return d, true, nil
}

func (r *Repo) Save(ctx context.Context, d domain.Device) (domain.Device, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return domain.Device{}, fmt.Errorf("redis: encoding device: %w", err)
	}
	keys := []string{r.deviceKey(d.ID), r.indexKey(), r.seqKey()}
	if err := saveScript.Run(ctx, r.client, keys, d.ID, string(raw)).Err(); err != nil {
		return domain.Device{}, fmt.Errorf("redis: save device: %w", err)
	}
	return d.Clone(), nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.deviceKey(id))
		p.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete device: %w", err)
	}
	return nil
}

func decode(s string) (domain.Device, error) {
	var d domain.Device
	err := json.Unmarshal([]byte(s), &d)
	return d, err
}

var _ domain.DeviceRepository = (*Repo)(nil)

package store

import (
	"context"
	"encoding/json"
	"path"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the RunStore interface using Redis as the backend.
// Each run is stored as JSON, with the TTL of the store,
// and indexed in a sorted set by the creation time.
// The keys namespace is organized as follows:
// - `/<prefix>/runs/<runID>` for storing the run
// - `/<prefix>/runs` for the sorted set of run IDs

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns the RunStore on Redis.
// Runs expire after ttl, zero ttl keeps runs forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) RunStore {
	return &redisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (m *redisStore) getRunKey(id string) string {
	return path.Join("/", m.prefix, "runs", id)
}

func (m *redisStore) getRunListKey() string {
	return path.Join("/", m.prefix, "runs")
}

func (m *redisStore) Create(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run")
	}

	ok, err := m.client.SetNX(ctx, m.getRunKey(run.ID), data, m.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to store run in Redis")
	}
	if !ok {
		return errors.Wrapf(ErrAlreadyExists, "run %s", run.ID)
	}

	listKey := m.getRunListKey()
	pipe := m.client.Pipeline()
	pipe.ZAdd(ctx, listKey, redis.Z{
		Score:  float64(run.CreatedAt.UnixMilli()),
		Member: run.ID,
	})
	if m.ttl > 0 {
		// drop the expired runs from the index
		cutoff := time.Now().Add(-m.ttl).UnixMilli()
		pipe.ZRemRangeByScore(ctx, listKey, "-inf", "("+strconv.FormatInt(cutoff, 10))
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to index run in Redis")
	}
	return nil
}

func (m *redisStore) Update(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run")
	}

	ok, err := m.client.SetXX(ctx, m.getRunKey(run.ID), data, m.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "failed to store run in Redis")
	}
	if !ok {
		return errors.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

func (m *redisStore) Get(ctx context.Context, id string) (*Run, error) {
	data, err := m.client.Get(ctx, m.getRunKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(ErrNotFound, "run %s", id)
		}
		return nil, errors.Wrap(err, "failed to get run from Redis")
	}
	return unmarshalRun([]byte(data))
}

func (m *redisStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	listKey := m.getRunListKey()
	ids, err := m.client.ZRevRange(ctx, listKey, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list runs from Redis")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = m.getRunKey(id)
	}
	data, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get runs from Redis")
	}

	list := make([]*Run, 0, len(data))
	var expired []any
	for i, item := range data {
		s, ok := item.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		run, err := unmarshalRun([]byte(s))
		if err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal run", "id", ids[i], "err", err.Error())
			continue
		}
		list = append(list, run)
	}

	if len(expired) > 0 {
		if err := m.client.ZRem(ctx, listKey, expired...).Err(); err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "remove expired runs", "err", err.Error())
		}
	}
	return list, nil
}

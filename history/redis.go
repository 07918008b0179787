package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "content_workflow"

// saveScript writes one run atomically. Every key is type-checked before the
// first write, so a failing save leaves the sequence, the index and the run
// keys untouched and the next save reuses the id.
//
// KEYS[1] sequence, KEYS[2] index; ARGV[1] run key prefix, ARGV[2] JSON document.
// Returns {id, seconds, microseconds} of the server clock.
var saveScript = redis.NewScript(`
local function kind(key)
  local t = redis.call('TYPE', key)
  if type(t) == 'table' then return t.ok end
  return t
end
local seq = kind(KEYS[1])
if seq ~= 'none' and seq ~= 'string' then
  return redis.error_reply('WRONGTYPE ' .. KEYS[1] .. ' holds ' .. seq)
end
local index = kind(KEYS[2])
if index ~= 'none' and index ~= 'zset' then
  return redis.error_reply('WRONGTYPE ' .. KEYS[2] .. ' holds ' .. index)
end
local nextID = tonumber(redis.call('GET', KEYS[1]) or '0')
if nextID == nil then
  return redis.error_reply('ERR ' .. KEYS[1] .. ' is not an integer')
end
nextID = nextID + 1
local runKey = ARGV[1] .. nextID
if kind(runKey) ~= 'none' then
  return redis.error_reply('ERR ' .. runKey .. ' already exists')
end
local t = redis.call('TIME')
redis.call('INCR', KEYS[1])
redis.call('HSET', runKey, 'doc', ARGV[2], 'sec', t[1], 'usec', t[2])
redis.call('ZADD', KEYS[2], nextID, nextID)
return {nextID, t[1], t[2]}
`)

// RedisStore keeps each run as a hash (JSON document plus server time) indexed
// by a sorted set scored by id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore uses prefix for every key; an empty prefix gets the default.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) seqKey() string         { return s.prefix + ":seq" }
func (s *RedisStore) indexKey() string       { return s.prefix + ":runs" }
func (s *RedisStore) runPrefix() string     { return s.prefix + ":run:" }
func (s *RedisStore) runKey(id int64) string { return s.runPrefix() + strconv.FormatInt(id, 10) }

func (s *RedisStore) Save(ctx context.Context, run SavedRun) (int64, error) {
	if err := run.Validate(); err != nil {
		return 0, err
	}
	run.ID, run.Timestamp = 0, time.Time{}
	data, err := json.Marshal(run)
	if err != nil {
		return 0, storageErr("encode run", err)
	}

	res, err := saveScript.Run(ctx, s.client, []string{s.seqKey(), s.indexKey()}, s.runPrefix(), data).Slice()
	if err != nil {
		return 0, storageErr("write run", err)
	}
	if len(res) != 3 {
		return 0, storageErr("write run", fmt.Errorf("unexpected reply %v", res))
	}
	id, ok := res[0].(int64)
	if !ok {
		return 0, storageErr("write run", fmt.Errorf("unexpected id %v", res[0]))
	}
	return id, nil
}

func (s *RedisStore) ListAll(ctx context.Context) ([]SavedRun, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, storageErr("list runs", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(members))
	for i, raw := range members {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, storageErr("list runs", fmt.Errorf("bad index member %q", raw))
		}
		ids[i] = id
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, s.runKey(id), "doc", "sec", "usec")
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("load runs", err)
	}

	runs := make([]SavedRun, 0, len(ids))
	for i, cmd := range cmds {
		run, err := decodeRun(ids[i], cmd.Val())
		if err != nil {
			return nil, storageErr("decode run", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func decodeRun(id int64, fields []any) (SavedRun, error) {
	if len(fields) != 3 {
		return SavedRun{}, fmt.Errorf("run %d: unexpected fields %v", id, fields)
	}
	doc, ok := fields[0].(string)
	if !ok {
		return SavedRun{}, fmt.Errorf("run %d: missing document", id)
	}
	var run SavedRun
	if err := json.Unmarshal([]byte(doc), &run); err != nil {
		return SavedRun{}, fmt.Errorf("run %d: %w", id, err)
	}
	sec, err := strconv.ParseInt(fmt.Sprint(fields[1]), 10, 64)
	if err != nil {
		return SavedRun{}, fmt.Errorf("run %d: bad time: %w", id, err)
	}
	usec, err := strconv.ParseInt(fmt.Sprint(fields[2]), 10, 64)
	if err != nil {
		return SavedRun{}, fmt.Errorf("run %d: bad time: %w", id, err)
	}
	run.ID = id
	run.Timestamp = time.Unix(sec, usec*int64(time.Microsecond)).UTC()
	return run, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Each record is one hash at <prefix>:rt:<jti>. Its key TTL is the retention
// window, so Redis itself purges old records.
const createRecordScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[1], 'sub', ARGV[2], 'rev', '0', 'created', ARGV[3], 'exp', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`

// Returns 1 revoked, 0 already revoked, -1 missing.
const revokeIfActiveScript = `
local rev = redis.call('HGET', KEYS[1], 'rev')
if not rev then
  return -1
end
if rev == '1' then
  return 0
end
redis.call('HSET', KEYS[1], 'rev', '1', 'used', ARGV[1])
return 1
`

var (
	createRecordLua   = redis.NewScript(createRecordScript)
	revokeIfActiveLua = redis.NewScript(revokeIfActiveScript)
)

// RedisStore implements Store on Redis with Lua compare-and-set scripts.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a Redis-backed refresh store. retention is the key
// TTL applied at creation.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "bff"
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &RedisStore{redis: client, prefix: prefix, retention: retention}
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + ":rt:" + jti
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, rec Record) (string, error) {
	id := rec.ID
	if id == "" {
		id = ulid.Make().String()
	}

	res, err := createRecordLua.Run(ctx, s.redis, []string{s.key(rec.JTI)},
		id,
		rec.SubjectID,
		strconv.FormatInt(rec.CreatedAt.UnixNano(), 10),
		strconv.FormatInt(rec.ExpiresAt.UnixNano(), 10),
		s.retention.Milliseconds(),
	).Int()
	if err != nil {
		return "", fmt.Errorf("session.RedisStore.Create: %w", err)
	}
	if res == 0 {
		return "", ErrDuplicateJTI
	}
	return id, nil
}

// FindByJTI implements Store.
func (s *RedisStore) FindByJTI(ctx context.Context, jti string) (Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(jti)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("session.RedisStore.FindByJTI: %w", err)
	}
	if len(fields) == 0 {
		return Record{}, ErrRecordNotFound
	}
	rec, err := decodeRedisRecord(jti, fields)
	if err != nil {
		return Record{}, fmt.Errorf("session.RedisStore.FindByJTI: %w", err)
	}
	return rec, nil
}

// RevokeIfActive implements Store.
func (s *RedisStore) RevokeIfActive(ctx context.Context, jti string, revokedAt time.Time) (RevokeOutcome, error) {
	res, err := revokeIfActiveLua.Run(ctx, s.redis, []string{s.key(jti)},
		strconv.FormatInt(revokedAt.UnixNano(), 10),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("session.RedisStore.RevokeIfActive: %w", err)
	}

	switch res {
	case 1:
		return Revoked, nil
	case 0:
		return AlreadyRevoked, nil
	default:
		return 0, ErrRecordNotFound
	}
}

func decodeRedisRecord(jti string, f map[string]string) (Record, error) {
	created, err := parseUnixNano(f["created"])
	if err != nil {
		return Record{}, err
	}
	exp, err := parseUnixNano(f["exp"])
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        f["id"],
		SubjectID: f["sub"],
		JTI:       jti,
		IsRevoked: f["rev"] == "1",
		CreatedAt: created,
		ExpiresAt: exp,
	}
	if raw, ok := f["used"]; ok {
		used, err := parseUnixNano(raw)
		if err != nil {
			return Record{}, err
		}
		rec.UsedAt = &used
	}
	return rec, nil
}

func parseUnixNano(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing timestamp field")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

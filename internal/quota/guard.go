// Package quota enforces per-tier test-generation limits. The guard is a
// capability handed to the assembler, checked before any selection work.
package quota

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Roles exempt from the generation limit.
const (
	RoleFree  = "FREE"
	RolePro   = "PRO"
	RoleAdmin = "ADMIN"
)

// Error reports a hit limit together with the numbers the caller needs to
// render an upgrade path.
type Error struct {
	Count int
	Limit int
}

func (e *Error) Error() string {
	return fmt.Sprintf("test generation limit reached (%d/%d)", e.Count, e.Limit)
}

// Counter abstracts how many tests a user has generated. The SQL store's
// CountTests satisfies this directly.
type Counter func(ctx context.Context, userID string) (int, error)

// Guard gates generation on a count of existing tests. Record is a no-op:
// the count derives from the tests table itself.
type Guard struct {
	count Counter
	limit int
}

// NewGuard builds a count-backed guard. limit <= 0 disables the check.
func NewGuard(count Counter, limit int) *Guard {
	return &Guard{count: count, limit: limit}
}

func (g *Guard) Check(ctx context.Context, userID, role string) error {
	if g.limit <= 0 || role == RolePro || role == RoleAdmin {
		return nil
	}
	n, err := g.count(ctx, userID)
	if err != nil {
		return err
	}
	if n >= g.limit {
		return &Error{Count: n, Limit: g.limit}
	}
	return nil
}

func (g *Guard) Record(ctx context.Context, userID string) error { return nil }

// RedisGuard keeps per-user generation counters in Redis, for deployments
// where the tests table is sharded or generation must be throttled without
// a table scan.
type RedisGuard struct {
	rdb   *redis.Client
	limit int
}

func NewRedisGuard(rdb *redis.Client, limit int) *RedisGuard {
	return &RedisGuard{rdb: rdb, limit: limit}
}

func redisKey(userID string) string { return "quota:tests:" + userID }

func (g *RedisGuard) Check(ctx context.Context, userID, role string) error {
	if g.limit <= 0 || role == RolePro || role == RoleAdmin {
		return nil
	}
	n, err := g.rdb.Get(ctx, redisKey(userID)).Int()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if n >= g.limit {
		return &Error{Count: n, Limit: g.limit}
	}
	return nil
}

func (g *RedisGuard) Record(ctx context.Context, userID string) error {
	return g.rdb.Incr(ctx, redisKey(userID)).Err()
}

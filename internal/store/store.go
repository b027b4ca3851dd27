// Package store mirrors surface id assignments into an external key-value
// store so other processes can resolve app-name ⇄ surface-id associations.
// The mirror is best-effort: it is a cache, not a source of truth, and no
// store failure ever propagates into assignment handling.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/saimizi/ivi-id-agent/internal/util"
)

const (
	connectAttempts = 10
	connectDelay    = time.Second
)

// kv is the minimal command surface the sync client needs. The production
// implementation wraps a Redis client; tests substitute an in-memory map.
type kv interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
}

// SyncClient bridges assignment events to the key-value store. After Connect
// gives up, every call degrades to a no-op that is safe to make.
type SyncClient struct {
	kv        kv
	logger    *util.Logger
	attempts  int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration)
	connected bool
}

// New creates a sync client for the given endpoint. An empty host disables
// the client entirely; Connect and all operations become no-ops.
func New(host string, port int, logger *util.Logger) *SyncClient {
	c := &SyncClient{
		logger:   logger,
		attempts: connectAttempts,
		delay:    connectDelay,
		sleep:    sleepCtx,
	}
	if host != "" {
		c.kv = newRedisKV(fmt.Sprintf("%s:%d", host, port))
	}
	return c
}

func newWithKV(kv kv, logger *util.Logger) *SyncClient {
	return &SyncClient{
		kv:       kv,
		logger:   logger,
		attempts: connectAttempts,
		delay:    0,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Connect attempts to reach the store, pausing between attempts, and gives
// up permanently once the retry budget is exhausted. It blocks the caller;
// the engine must not process lifecycle events until it returns.
func (c *SyncClient) Connect(ctx context.Context) {
	if c.kv == nil {
		c.logger.Infof("skip using key-value store")
		return
	}
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.kv.Ping(ctx); err == nil {
			c.connected = true
			c.logger.Infof("connected to key-value store")
			return
		} else {
			c.logger.Warnf("store connect attempt %d/%d failed: %v", attempt, c.attempts, err)
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < c.attempts {
			c.sleep(ctx, c.delay)
		}
	}
	c.logger.Errorf("failed to connect to key-value store; mirroring disabled")
}

// Connected reports whether the store is reachable and mirroring is active.
func (c *SyncClient) Connected() bool {
	return c.connected
}

// SurfaceKey is the reverse-mapping key for a surface id.
func SurfaceKey(id uint32) string {
	return fmt.Sprintf("SURID-%d", id)
}

// Register mirrors a successful assignment: appId -> id and SURID-<id> ->
// appId. An empty appId or zero id is a no-op, not an error. Store failures
// are swallowed.
func (c *SyncClient) Register(ctx context.Context, appID string, id uint32) {
	if !c.connected {
		return
	}
	if appID == "" {
		c.logger.Warnf("register skipped: empty app id")
		return
	}
	if id == 0 {
		c.logger.Warnf("register skipped: invalid surface id %d", id)
		return
	}
	if err := c.kv.Set(ctx, appID, fmt.Sprintf("%d", id)); err != nil {
		c.logger.Warnf("store forward mapping failed: %v", err)
		return
	}
	if err := c.kv.Set(ctx, SurfaceKey(id), appID); err != nil {
		c.logger.Warnf("store reverse mapping failed: %v", err)
		return
	}
	c.logger.Infof("registered %s@%d", appID, id)
}

// Unregister removes the mirror entries for id, recovering the app id from
// the reverse mapping. A zero id or an absent reverse mapping is a no-op.
func (c *SyncClient) Unregister(ctx context.Context, id uint32) {
	if !c.connected || id == 0 {
		return
	}
	appID, found, err := c.kv.Get(ctx, SurfaceKey(id))
	if err != nil {
		c.logger.Warnf("store reverse lookup failed: %v", err)
		return
	}
	if err := c.kv.Del(ctx, SurfaceKey(id)); err != nil {
		c.logger.Warnf("store reverse delete failed: %v", err)
	}
	if !found {
		return
	}
	if err := c.kv.Del(ctx, appID); err != nil {
		c.logger.Warnf("store forward delete failed: %v", err)
		return
	}
	c.logger.Infof("unregistered %s@%d", appID, id)
}

// redisKV adapts a Redis client to the kv interface.
type redisKV struct {
	rdb *redis.Client
}

func newRedisKV(addr string) *redisKV {
	return &redisKV{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *redisKV) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

func (r *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *redisKV) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

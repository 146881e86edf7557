package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ScriptCache keeps parsed script content in Redis so the play hot path
// does not hit PostgreSQL on every turn. Keys are versioned, so a stale
// session reading an old version misses and falls through to the database.
type ScriptCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewScriptCache creates a Redis-backed script content cache.
func NewScriptCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ScriptCache {
	return &ScriptCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("ScriptCache"),
	}
}

func contentKey(scriptID uuid.UUID, version int) string {
	return fmt.Sprintf("script:%s:v%d", scriptID, version)
}

func versionKey(scriptID uuid.UUID) string {
	return fmt.Sprintf("script:%s:version", scriptID)
}

// Get returns the cached content for a specific script version, or
// (nil, nil) on a miss. Cache failures degrade to a miss; the caller
// falls through to the database.
func (c *ScriptCache) Get(ctx context.Context, scriptID uuid.UUID, version int) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, contentKey(scriptID, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Warn("Script cache read failed, treating as miss",
			zap.Error(err), zap.String("scriptID", scriptID.String()))
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// GetCurrent returns the cached current version of a script together with
// its content, or (0, nil, nil) on a miss.
func (c *ScriptCache) GetCurrent(ctx context.Context, scriptID uuid.UUID) (int, json.RawMessage, error) {
	version, err := c.client.Get(ctx, versionKey(scriptID)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Script version read failed, treating as miss",
				zap.Error(err), zap.String("scriptID", scriptID.String()))
		}
		return 0, nil, nil
	}
	content, err := c.Get(ctx, scriptID, version)
	if err != nil || content == nil {
		return 0, nil, err
	}
	return version, content, nil
}

// Set stores the content of a script version and records it as the current
// version. Both writes share one pipeline.
func (c *ScriptCache) Set(ctx context.Context, scriptID uuid.UUID, version int, content json.RawMessage) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, contentKey(scriptID, version), []byte(content), c.ttl)
	pipe.Set(ctx, versionKey(scriptID), version, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Script cache write failed",
			zap.Error(err), zap.String("scriptID", scriptID.String()), zap.Int("version", version))
		return fmt.Errorf("failed to cache script %s v%d: %w", scriptID, version, err)
	}
	c.logger.Debug("Script content cached",
		zap.String("scriptID", scriptID.String()), zap.Int("version", version))
	return nil
}

// Invalidate drops the cached current version and, when known, the content
// entry for that version. Called on every script content update.
func (c *ScriptCache) Invalidate(ctx context.Context, scriptID uuid.UUID, versions ...int) error {
	keys := []string{versionKey(scriptID)}
	for _, v := range versions {
		keys = append(keys, contentKey(scriptID, v))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Script cache invalidation failed",
			zap.Error(err), zap.String("scriptID", scriptID.String()))
		return fmt.Errorf("failed to invalidate script cache for %s: %w", scriptID, err)
	}
	return nil
}

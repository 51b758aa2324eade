// Package archive persists session conversation history to Redis.
// Archival is strictly best-effort: a dead or absent Redis never blocks
// or fails the session path, it only costs the durable copy.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/session"
)

// keyPrefix namespaces archive keys in a shared Redis.
const keyPrefix = "voxagent:history:"

// defaultTTL keeps archived transcripts around long enough for review
// without growing unbounded.
const defaultTTL = 7 * 24 * time.Hour

// Archiver writes session turns to Redis lists, one list per room.
// A nil Archiver is valid and drops everything.
type Archiver struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates an archiver over an existing Redis client.
func New(client *redis.Client) *Archiver {
	return &Archiver{client: client, ttl: defaultTTL}
}

// Connect dials Redis and returns an archiver, or nil if addr is empty
// or the server is unreachable. Callers use the nil archiver as-is.
func Connect(ctx context.Context, addr string) *Archiver {
	logger := log.Component("archive")

	if addr == "" {
		logger.Info("no redis address configured, history archival disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, history archival disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("history archival enabled", "addr", addr)
	return New(client)
}

// Key returns the Redis key holding a room's transcript list.
func Key(roomID string) string {
	return keyPrefix + roomID
}

// Append records one turn on the room's list. Failures are logged and
// swallowed.
func (a *Archiver) Append(ctx context.Context, roomID string, turn session.Turn) {
	if a == nil || a.client == nil {
		return
	}

	data, err := json.Marshal(turn)
	if err != nil {
		log.Component("archive").Warn("failed to encode turn", "room", roomID, "error", err)
		return
	}

	key := Key(roomID)
	pipe := a.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, a.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Component("archive").Warn("failed to archive turn", "room", roomID, "error", err)
	}
}

// History reads back a room's archived transcript.
func (a *Archiver) History(ctx context.Context, roomID string) ([]session.Turn, error) {
	if a == nil || a.client == nil {
		return nil, nil
	}

	entries, err := a.client.LRange(ctx, Key(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading archive for %s: %w", roomID, err)
	}

	turns := make([]session.Turn, 0, len(entries))
	for _, entry := range entries {
		var turn session.Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			log.Component("archive").Warn("skipping corrupt archive entry", "room", roomID, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Drop removes a room's archived transcript.
func (a *Archiver) Drop(ctx context.Context, roomID string) {
	if a == nil || a.client == nil {
		return
	}
	if err := a.client.Del(ctx, Key(roomID)).Err(); err != nil {
		log.Component("archive").Warn("failed to drop archive", "room", roomID, "error", err)
	}
}

// Close releases the underlying Redis connection.
func (a *Archiver) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

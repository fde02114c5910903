// Package presence reads agent availability from the presence subsystem.
// The presence subsystem owns the keys; this core only reads them.
package presence

import (
	"context"
	"errors"

	"atendimento_backend/internal/agents"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:agent:"

// Reader resolves an agent's current presence from redis.
type Reader struct {
	client *redis.Client
}

// NewReader creates a presence reader over the given redis client.
func NewReader(client *redis.Client) *Reader {
	return &Reader{client: client}
}

// NewReaderFromURL connects a presence reader to the redis at the given URL.
func NewReaderFromURL(redisURL string) (*Reader, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Reader{client: redis.NewClient(opt)}, nil
}

// Status returns the agent's presence. A missing key or unknown value
// degrades to away rather than erroring.
func (r *Reader) Status(ctx context.Context, agentID uuid.UUID) (agents.Presence, error) {
	value, err := r.client.Get(ctx, keyPrefix+agentID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return agents.PresenceAway, nil
		}
		return agents.PresenceAway, err
	}

	switch agents.Presence(value) {
	case agents.PresenceOnline, agents.PresenceBusy, agents.PresenceOnCall, agents.PresenceAway:
		return agents.Presence(value), nil
	default:
		return agents.PresenceAway, nil
	}
}

// Close releases the underlying redis connection.
func (r *Reader) Close() error {
	return r.client.Close()
}

// Package presence keeps a Redis directory of the clients connected to each
// server instance.
package presence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gochat:presence:"

// Options configure the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Redis stores this node's online clients in one hash, client id to name.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects, verifies the server answers, and clears entries left
// by a previous run of the same node.
func NewRedis(ctx context.Context, opts Options, nodeID string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis ping %s", opts.Addr)
	}

	r := &Redis{client: client, key: Key(nodeID)}
	if err := r.client.Del(pingCtx, r.key).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "clear stale presence")
	}
	return r, nil
}

// Key returns the hash holding nodeID's clients.
func Key(nodeID string) string { return keyPrefix + nodeID }

// Online records a joined client.
func (r *Redis) Online(ctx context.Context, id, name string) error {
	return errors.Wrap(r.client.HSet(ctx, r.key, id, name).Err(), "presence online")
}

// Offline forgets a client. Forgetting an unknown client is not an error.
func (r *Redis) Offline(ctx context.Context, id string) error {
	return errors.Wrap(r.client.HDel(ctx, r.key, id).Err(), "presence offline")
}

// Members returns this node's online clients, id to name.
func (r *Redis) Members(ctx context.Context) (map[string]string, error) {
	members, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "presence members")
	}
	return members, nil
}

// Close removes this node's entries and closes the connection.
func (r *Redis) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delErr := r.client.Del(ctx, r.key).Err()
	if err := r.client.Close(); err != nil {
		return err
	}
	return errors.Wrap(delErr, "clear presence")
}

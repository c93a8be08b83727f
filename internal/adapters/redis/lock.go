// Package redis provides the distributed per-room booking lock used
// when more than one engine instance runs against the same database.
package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if this locker still owns it, so a
// lock that outlived its TTL cannot release a successor's hold.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

type RoomLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomLock(client *redis.Client, ttl time.Duration) *RoomLock {
	return &RoomLock{client: client, ttl: ttl}
}

// Lock polls SetNX until the key is acquired or ctx is done. The TTL
// bounds how long a crashed holder can block a room.
func (l *RoomLock) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	fullKey := "lock:" + key

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseScript.Run(context.Background(), l.client, []string{fullKey}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type deliveredValue struct {
	ChatMessageID string    `json:"chatMessageId"`
	SentAt        time.Time `json:"sentAt"`
}

func (c *RedisCache) StoreDelivered(ctx context.Context, messageID, userID uuid.UUID, chatMessageID string, sentAt time.Time) error {
	key := fmt.Sprintf("delivery:%s:%s", messageID, userID)
	val := deliveredValue{
		ChatMessageID: chatMessageID,
		SentAt:        sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

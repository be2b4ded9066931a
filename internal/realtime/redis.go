package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates a new Redis client.
func NewRedis(addr, password string) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	log.Printf("Redis client created (addr: %s)\n", addr)
	return rdb
}

// Notify publishes a push hint on the recipient's notification channel.
// Best effort: a lost hint only delays the next poll.
func Notify(rdb *redis.Client, recipientID uuid.UUID, payload interface{}) {
	if rdb == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling notification: %v", err)
		return
	}
	if err := rdb.Publish(context.Background(), "notifications:"+recipientID.String(), b).Err(); err != nil {
		log.Printf("Error publishing notification: %v", err)
	}
}

package models

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/plsfixthx/annotator/internal/config"
	"github.com/redis/go-redis/v9"
)

// InitRedis initializes the Redis connection used by the rate limiters.
// The server runs without Redis; limits are skipped while it is down.
func InitRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("WARN: Redis not reachable, rate limits disabled until it is: %v", err)
		return client
	}
	log.Println("Redis connection established")
	return client
}

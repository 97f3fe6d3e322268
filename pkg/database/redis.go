package database

import (
	"context"
	"fmt"
	"log"
	"social_chat_backend/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化 Redis 客户端。
// 同时承担在线状态键、好友/群成员缓存与跨实例消息的发布订阅
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx := context.Background()
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return rdb, nil
}

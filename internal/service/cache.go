package service

import (
	"context"
	"time"
)

// Cache 只读数据缓存
// 由 pkg/redis.Client 实现；为 nil 时所有读取直接落库
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const slotListCacheKey = "slots:list"

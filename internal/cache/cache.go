package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const productTTL = 5 * time.Minute

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func ProductKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

func GetProduct(ctx context.Context, rdb *redis.Client, id uint) ([]byte, bool) {
	data, err := rdb.Get(ctx, ProductKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func SetProduct(ctx context.Context, rdb *redis.Client, id uint, data []byte) error {
	return rdb.Set(ctx, ProductKey(id), data, productTTL).Err()
}

func DropProduct(ctx context.Context, rdb *redis.Client, id uint) error {
	return rdb.Del(ctx, ProductKey(id)).Err()
}

// Package cache инкапсулирует подключение к redis — эфемерному хранилищу
// счётчиков ограничителя частоты запросов. Данные живут не дольше окна
// лимита и нигде, кроме ограничителя, не используются.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/phone-auth/internal/config"
)

// Cache хранит клиент redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// IncrWithTTL атомарно увеличивает счётчик и выставляет TTL при первом
// инкременте. Возвращает новое значение счётчика и оставшееся время окна.
func (c *Cache) IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	const op = "cache.IncrWithTTL"

	pipe := c.Db.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return incr.Val(), ttl.Val(), nil
}

// CountInWindow атомарно регистрирует событие в скользящем окне и возвращает
// число событий за окно, включая текущее. Используется sorted set с отметками
// времени в качестве score.
func (c *Cache) CountInWindow(ctx context.Context, key, member string, now time.Time, window time.Duration) (int64, error) {
	const op = "cache.CountInWindow"

	cutoff := now.Add(-window).UnixNano()
	pipe := c.Db.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return card.Val(), nil
}

// OldestInWindow возвращает время самой старой отметки в скользящем окне.
func (c *Cache) OldestInWindow(ctx context.Context, key string) (time.Time, error) {
	const op = "cache.OldestInWindow"

	vals, err := c.Db.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(vals) == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, int64(vals[0].Score)), nil
}

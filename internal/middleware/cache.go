package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/bizadmin-auth/internal/config"
)

// CacheStore is the slice of the Redis API the response cache uses.
// *redis.Client satisfies it.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// captureWriter copies up to limit bytes of the body while forwarding
// everything to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKey scopes entries by tenant so a card is only ever served inside the
// tenant it was rendered for.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Request().URL.Path))
	return fmt.Sprintf("%s:%s:%x", cfg.Prefix, TenantID(c), sum[:])
}

// NewResponseCache caches successful GET JSON bodies in Redis. It must run
// after JWTAuth. Redis errors are logged and the request is served
// uncached; bodies larger than MaxBodyBytes are never stored.
func NewResponseCache(cfg config.CacheConfig, rdb CacheStore, logger zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	log := logger.With().Str("component", "cache").Logger()
	limit := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			body, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			case !errors.Is(err, redis.Nil):
				log.Warn().Err(err).Str("key", key).Msg("cache read failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: limit + 1}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.size == 0 || cw.size > limit {
				return nil
			}
			if err := rdb.SetEx(ctx, key, cw.buf.Bytes(), cfg.TTL).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
			return nil
		}
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// response.go caches the JSON bodies of anonymous public listings in
// Valkey. Any content write clears the whole cache, since a post change can
// show up in every listing.
package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"quillpress/internal/metrics"
)

const (
	keyPrefix = "resp:"

	// DefaultTTL is how long a response stays cached.
	DefaultTTL = 2 * time.Minute

	// HeaderStatus reports HIT or MISS on cacheable responses.
	HeaderStatus = "X-Cache"
)

// ResponseCache stores response bodies keyed by request URI. A nil
// *ResponseCache is valid and caches nothing.
type ResponseCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	metrics *metrics.Metrics

	// skip reports requests that must bypass the cache, typically signed-in
	// ones whose responses depend on the user.
	skip func(r *http.Request) bool
}

// New creates a response cache. ttl 0 uses DefaultTTL. skip may be nil.
func New(client redis.Cmdable, ttl time.Duration, m *metrics.Metrics, skip func(*http.Request) bool) *ResponseCache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{client: client, ttl: ttl, metrics: m, skip: skip}
}

// Key returns the cache key for a request URI.
func Key(requestURI string) string {
	return keyPrefix + requestURI
}

// Get returns the cached body for key. Errors count as misses.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached response by scanning for the prefix.
func (c *ResponseCache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("response cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("response cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("response cache cleared", "deleted", deleted)
	}
}

// Middleware serves GET requests from the cache and stores successful
// responses. Requests matched by skip pass straight through.
func (c *ResponseCache) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || (c.skip != nil && c.skip(r)) {
			next.ServeHTTP(w, r)
			return
		}

		key := Key(r.URL.RequestURI())
		if body, ok := c.Get(r.Context(), key); ok {
			c.metrics.CacheResult("hit")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(HeaderStatus, "HIT")
			w.Write(body)
			return
		}
		c.metrics.CacheResult("miss")

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set(HeaderStatus, "MISS")
		next.ServeHTTP(rec, r)
		if rec.status == http.StatusOK {
			c.Set(r.Context(), key, rec.body.Bytes())
		}
	})
}

// recorder passes the response through while keeping a copy of the body.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Package cache はドメインデータの読み取りキャッシュを提供する。
// 同一キーへの同時読み取りはsingleflightで1回のフェッチに合流させ、
// ミューテーション後はキー単位の無効化で次回読み取り時に再フェッチさせる。
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// MetricsRecorder はキャッシュの計測インターフェース。
type MetricsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheCoalesced()
	RecordCacheInvalidation(count int)
}

// entry はキャッシュされた値と取得時刻。
type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache はキー単位の読み取りキャッシュ。
// TTLが0の場合、エントリは無効化されるまで新鮮とみなす。
type Cache struct {
	ttl     time.Duration
	logger  *slog.Logger
	metrics MetricsRecorder // nilの場合は計測しない
	now     func() time.Time

	mu      sync.RWMutex
	entries map[Key]entry
	group   singleflight.Group
}

// Option はCacheの生成オプション。
type Option func(*Cache)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New はCacheを生成する。
func New(ttl time.Duration, logger *slog.Logger, metrics MetricsRecorder, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		entries: make(map[Key]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read はキーに対応する値を返す。
// 新鮮なエントリがあればフェッチせずにそれを返す。
// なければfetchを呼んで結果を保存する。同一キーへの同時読み取りは
// 1回のfetch呼び出しに合流し、全員が同じ結果を受け取る。
func (c *Cache) Read(ctx context.Context, key Key, fetch func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return v, nil
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}

	v, err, shared := c.group.Do(string(key), func() (any, error) {
		// 合流待ちの間に別の呼び出しが保存した可能性がある
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if shared && c.metrics != nil {
		c.metrics.RecordCacheCoalesced()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ReadAs はReadの型付きラッパー。
func ReadAs[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate は指定したキーのエントリを取り除く。
// 存在しないキーの無効化は何もしない。
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	removed := 0
	for _, key := range keys {
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheInvalidation(removed)
	}
	c.logger.Debug("キャッシュを無効化しました",
		slog.Int("keys", len(keys)),
		slog.Int("removed", removed),
	)
}

// InvalidatePrefix は接頭辞に一致するすべてのエントリを取り除く。
func (c *Cache) InvalidatePrefix(prefix Key) {
	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(string(key), string(prefix)) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheInvalidation(removed)
	}
	c.logger.Debug("キャッシュを接頭辞で無効化しました",
		slog.String("prefix", string(prefix)),
		slog.Int("removed", removed),
	)
}

// Clear はすべてのエントリを取り除く。サインアウト時に使う。
func (c *Cache) Clear() {
	c.mu.Lock()
	removed := len(c.entries)
	c.entries = make(map[Key]entry)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCacheInvalidation(removed)
	}
}

// Fresh はキーに新鮮なエントリが存在するかを返す。
func (c *Cache) Fresh(key Key) bool {
	_, ok := c.lookup(key)
	return ok
}

func (c *Cache) lookup(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.fetchedAt) > c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key Key, v any) {
	c.mu.Lock()
	c.entries[key] = entry{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
}

package watcher

import (
	"context"
	"time"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// CacheClient is the capability a key-value cache exposes.
type CacheClient interface {
	Get(ctx context.Context, key string) (value any, hit bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheWatcher instruments a CacheClient. Every operation appends one
// cache entry with the operation name, key, hit/miss, and duration.
type CacheWatcher struct {
	sub *submitter
}

func NewCacheWatcher(log *entrylog.Log) *CacheWatcher {
	return &CacheWatcher{sub: newSubmitter(log, nil)}
}

// Wrap returns a client that records an entry per operation. Wrapping an
// already wrapped client returns it unchanged.
func (w *CacheWatcher) Wrap(target CacheClient) CacheClient {
	if target == nil {
		return nil
	}
	if _, ok := target.(*cacheDecorator); ok {
		return target
	}
	return &cacheDecorator{watcher: w, next: target}
}

// Track records a cache operation observed out-of-band.
func (w *CacheWatcher) Track(ctx context.Context, operation, key string, hit bool, elapsedMs int64, err error) {
	w.sub.submit(ctx, domain.KindCache, cachePayload(operation, key, hit, elapsedMs, err))
}

type cacheDecorator struct {
	watcher *CacheWatcher
	next    CacheClient
}

func (d *cacheDecorator) Get(ctx context.Context, key string) (any, bool, error) {
	start := d.watcher.sub.now()
	value, hit, err := d.next.Get(ctx, key)
	elapsed := durationMs(d.watcher.sub.now().Sub(start))
	d.watcher.sub.submit(ctx, domain.KindCache, cachePayload("get", key, hit, elapsed, err))
	return value, hit, err
}

func (d *cacheDecorator) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	start := d.watcher.sub.now()
	err := d.next.Set(ctx, key, value, ttl)
	elapsed := durationMs(d.watcher.sub.now().Sub(start))
	d.watcher.sub.submit(ctx, domain.KindCache, cachePayload("set", key, false, elapsed, err))
	return err
}

func (d *cacheDecorator) Delete(ctx context.Context, key string) error {
	start := d.watcher.sub.now()
	err := d.next.Delete(ctx, key)
	elapsed := durationMs(d.watcher.sub.now().Sub(start))
	d.watcher.sub.submit(ctx, domain.KindCache, cachePayload("delete", key, false, elapsed, err))
	return err
}

func cachePayload(operation, key string, hit bool, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"operation":  operation,
		"key":        key,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if operation == "get" {
		payload["hit"] = hit
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	return payload
}

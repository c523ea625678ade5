package watcher

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// RedisWatcher instruments a go-redis client through its hook mechanism.
// Each command (or pipeline) appends one redis-command entry.
type RedisWatcher struct {
	sub *submitter
}

func NewRedisWatcher(log *entrylog.Log) *RedisWatcher {
	return &RedisWatcher{sub: newSubmitter(log, nil)}
}

// RedisTarget is the part of the go-redis client surface the watcher
// needs. *redis.Client, *redis.ClusterClient, and *redis.Ring all
// satisfy it.
type RedisTarget interface {
	AddHook(redis.Hook)
}

// instrumentedRedis remembers clients that already carry a watcher hook.
// go-redis keeps a hook list, so installing twice would double-record.
var instrumentedRedis sync.Map

// Instrument installs the watcher's hook on the client. Instrumenting
// the same client again is a no-op, even from a different watcher.
func (w *RedisWatcher) Instrument(client RedisTarget) {
	if client == nil {
		return
	}
	if _, seen := instrumentedRedis.LoadOrStore(client, struct{}{}); seen {
		return
	}
	client.AddHook(&redisHook{watcher: w})
}

// Track records a command observed out-of-band.
func (w *RedisWatcher) Track(ctx context.Context, command string, elapsedMs int64, err error) {
	w.sub.submit(ctx, domain.KindRedisCommand, redisPayload(command, 1, elapsedMs, err))
}

type redisHook struct {
	watcher *RedisWatcher
}

func (h *redisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *redisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		w := h.watcher
		start := w.sub.now()
		err := next(ctx, cmd)
		elapsed := durationMs(w.sub.now().Sub(start))
		recordErr := err
		if recordErr == redis.Nil {
			recordErr = nil
		}
		w.sub.submit(ctx, domain.KindRedisCommand, redisPayload(strings.ToUpper(cmd.Name()), 1, elapsed, recordErr))
		return err
	}
}

func (h *redisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		w := h.watcher
		start := w.sub.now()
		err := next(ctx, cmds)
		elapsed := durationMs(w.sub.now().Sub(start))
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, strings.ToUpper(cmd.Name()))
		}
		w.sub.submit(ctx, domain.KindRedisCommand, redisPayload(strings.Join(names, " "), len(cmds), elapsed, err))
		return err
	}
}

func redisPayload(command string, commandCount int, elapsedMs int64, err error) map[string]any {
	payload := map[string]any{
		"command":    command,
		"commands":   commandCount,
		"durationMs": elapsedMs,
		"status":     domain.StatusCompleted,
	}
	if err != nil {
		payload["status"] = domain.StatusFailed
		payload["errors"] = errStrings(err)
	}
	return payload
}

package watcher

import (
	"log/slog"
	"net/http"

	"spyglass/collector/internal/entrylog"
)

// Config holds the per-kind enable flags and options read once at
// startup. Watchers default to enabled.
type Config struct {
	Request          bool
	RequestSkipPaths []string
	Batch            bool
	BatchOptions     BatchOptions
	Cache            bool
	Query            bool
	QueryOptions     QueryOptions
	Mail             bool
	Job              bool
	Gate             bool
	HTTPClient       bool
	Redis            bool
	LogLine          bool
	LogLineMinLevel  slog.Level
}

// DefaultConfig enables every watcher with default options.
func DefaultConfig() Config {
	return Config{
		Request: true, Batch: true, Cache: true, Query: true,
		Mail: true, Job: true, Gate: true, HTTPClient: true,
		Redis: true, LogLine: true,
		LogLineMinLevel: slog.LevelWarn,
	}
}

// Targets are the host's optional service objects. Any field may be nil;
// the corresponding watcher then offers manual tracking only.
type Targets struct {
	Batch      BatchRunner
	Cache      CacheClient
	Query      QueryRunner
	Mailer     Mailer
	Dispatcher Dispatcher
	Gate       GateChecker
	HTTPClient *http.Client
	Redis      RedisTarget
	LogHandler slog.Handler
}

// Registry holds every watcher plus the instrumented replacements for
// the targets that were present and enabled. The host must use the
// wrapped values in place of the originals.
type Registry struct {
	Request   *RequestWatcher
	Batch     *BatchWatcher
	Cache     *CacheWatcher
	Query     *QueryWatcher
	Mail      *MailWatcher
	Job       *JobWatcher
	Gate      *GateWatcher
	HTTP      *HTTPClientWatcher
	Redis     *RedisWatcher
	LogLine   *LogLineWatcher
	Exception *ExceptionWatcher
	Events    *EventWatcher

	// Wrapped replacements. Nil (or equal to the original) when the
	// watcher is disabled or its target was absent.
	WrappedBatch      BatchRunner
	WrappedCache      CacheClient
	WrappedQuery      QueryRunner
	WrappedMailer     Mailer
	WrappedDispatcher Dispatcher
	WrappedGate       GateChecker
	WrappedLogHandler slog.Handler
}

// Setup builds all watchers and instruments the targets that are present
// and enabled. Target absence is never fatal; the watcher stays available
// for manual tracking and a notice is logged. Re-wrapping an already
// instrumented value is a no-op, so calling Setup twice over the same
// registry's output does not double-wrap.
func Setup(log *entrylog.Log, cfg Config, targets Targets, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		Request:   NewRequestWatcher(log, cfg.RequestSkipPaths...),
		Batch:     NewBatchWatcher(log, cfg.BatchOptions),
		Cache:     NewCacheWatcher(log),
		Query:     NewQueryWatcher(log, cfg.QueryOptions),
		Mail:      NewMailWatcher(log),
		Job:       NewJobWatcher(log),
		Gate:      NewGateWatcher(log),
		HTTP:      NewHTTPClientWatcher(log),
		Redis:     NewRedisWatcher(log),
		LogLine:   NewLogLineWatcher(log, cfg.LogLineMinLevel),
		Exception: NewExceptionWatcher(log),
		Events:    NewEventWatcher(log),
	}

	if cfg.Batch {
		if targets.Batch != nil {
			r.WrappedBatch = r.Batch.Wrap(targets.Batch)
		} else {
			logger.Info("watcher: batch target absent, manual tracking only")
		}
	}
	if cfg.Cache {
		if targets.Cache != nil {
			r.WrappedCache = r.Cache.Wrap(targets.Cache)
		} else {
			logger.Info("watcher: cache target absent, manual tracking only")
		}
	}
	if cfg.Query {
		if targets.Query != nil {
			r.WrappedQuery = r.Query.Wrap(targets.Query)
		} else {
			logger.Info("watcher: query target absent, manual tracking only")
		}
	}
	if cfg.Mail {
		if targets.Mailer != nil {
			r.WrappedMailer = r.Mail.Wrap(targets.Mailer)
		} else {
			logger.Info("watcher: mailer target absent, manual tracking only")
		}
	}
	if cfg.Job {
		if targets.Dispatcher != nil {
			r.WrappedDispatcher = r.Job.Wrap(targets.Dispatcher)
		} else {
			logger.Info("watcher: job dispatcher target absent, manual tracking only")
		}
	}
	if cfg.Gate {
		if targets.Gate != nil {
			r.WrappedGate = r.Gate.Wrap(targets.Gate)
		} else {
			logger.Info("watcher: feature gate target absent, manual tracking only")
		}
	}
	if cfg.HTTPClient {
		if targets.HTTPClient != nil {
			r.HTTP.Instrument(targets.HTTPClient)
		} else {
			logger.Info("watcher: http client target absent, manual tracking only")
		}
	}
	if cfg.Redis {
		if targets.Redis != nil {
			r.Redis.Instrument(targets.Redis)
		} else {
			logger.Info("watcher: redis target absent, manual tracking only")
		}
	}
	if cfg.LogLine && targets.LogHandler != nil {
		r.WrappedLogHandler = r.LogLine.Wrap(targets.LogHandler)
	}

	return r
}

package watcher

import (
	"strings"

	"github.com/gin-gonic/gin"

	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// RequestWatcher records inbound HTTP requests handled by the host's gin
// router as request entries.
type RequestWatcher struct {
	sub          *submitter
	skipPaths    map[string]bool
	skipPrefixes []string
}

// NewRequestWatcher creates the watcher. skipPaths lists request paths
// that are never recorded (health probes, the read API itself). Entries
// ending in "/" match as prefixes.
func NewRequestWatcher(log *entrylog.Log, skipPaths ...string) *RequestWatcher {
	w := &RequestWatcher{sub: newSubmitter(log, nil), skipPaths: make(map[string]bool, len(skipPaths))}
	for _, p := range skipPaths {
		if strings.HasSuffix(p, "/") {
			w.skipPrefixes = append(w.skipPrefixes, p)
		} else {
			w.skipPaths[p] = true
		}
	}
	return w
}

func (w *RequestWatcher) skip(path string) bool {
	if w.skipPaths[path] {
		return true
	}
	for _, prefix := range w.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware returns a gin middleware that appends one entry per handled
// request after the handler chain completes.
func (w *RequestWatcher) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if w.skip(c.Request.URL.Path) {
			c.Next()
			return
		}
		start := w.sub.now()
		c.Next()
		elapsed := durationMs(w.sub.now().Sub(start))

		statusCode := c.Writer.Status()
		payload := map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"statusCode": statusCode,
			"durationMs": elapsed,
			"status":     domain.StatusCompleted,
		}
		if route := c.FullPath(); route != "" {
			payload["route"] = route
		}
		if statusCode >= 500 || len(c.Errors) > 0 {
			payload["status"] = domain.StatusFailed
			if len(c.Errors) > 0 {
				payload["errors"] = c.Errors.Errors()
			}
		}
		w.sub.submit(c.Request.Context(), domain.KindRequest, payload)
	}
}

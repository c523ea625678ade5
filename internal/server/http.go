// Package server assembles the gin router serving the entry log API.
package server

import (
	"crypto"
	"net/http"

	"github.com/gin-gonic/gin"

	"spyglass/collector/internal/entrylog/handler"
	"spyglass/collector/internal/server/middleware"
	"spyglass/collector/internal/watcher"
)

// Options configures the router.
type Options struct {
	// Production switches gin to release mode and omits error details
	// from responses.
	Production bool
	// PublicKey enables JWT auth on the API when non-nil.
	PublicKey crypto.PublicKey
	// RequestWatcher records inbound requests when non-nil. The API's
	// own routes are excluded through its skip list.
	RequestWatcher *watcher.RequestWatcher
}

// New builds the router. /healthz is public; everything under /api goes
// through auth.
func New(h *handler.Handler, opts Options) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.RequestWatcher != nil {
		r.Use(opts.RequestWatcher.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(opts.PublicKey))
	h.Register(api)

	return r
}

package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"spyglass/collector/internal/apperr"
	"spyglass/collector/internal/entrylog"
	"spyglass/collector/internal/entrylog/domain"
)

// Handler serves the entry log read API.
type Handler struct {
	log *entrylog.Log
	// devMode includes error details in failure responses. Off in
	// production.
	devMode bool
}

func NewHandler(log *entrylog.Log, devMode bool) *Handler {
	return &Handler{log: log, devMode: devMode}
}

// Register mounts the API routes on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/entries", h.ListEntries)
	rg.GET("/entries/new", h.CheckNew)
	rg.GET("/entries/latest", h.LatestSequence)
	rg.GET("/entries/stats", h.Stats)
	rg.GET("/entries/:sequence", h.GetEntry)
	rg.POST("/entries/:sequence/resolve", h.ResolveEntry)
	rg.POST("/entries/:sequence/unresolve", h.UnresolveEntry)
	rg.DELETE("/entries", h.ClearEntries)
}

// ListEntries handles GET /entries: one cursor page of entries.
func (h *Handler) ListEntries(c *gin.Context) {
	start := time.Now()
	q, err := parseQuery(c.Query)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	page, err := h.log.Entries(c.Request.Context(), q)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondPage(c, start, page.Entries, &Pagination{
		NewestSequence: page.NewestSequence,
		OldestSequence: page.OldestSequence,
		HasMore:        page.HasMore,
		Limit:          q.Limit,
	})
}

// GetEntry handles GET /entries/:sequence.
func (h *Handler) GetEntry(c *gin.Context) {
	start := time.Now()
	seq, err := sequenceParam(c)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	e, err := h.log.GetBySequence(c.Request.Context(), seq)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondOK(c, start, e)
}

// CheckNew handles GET /entries/new?since=N: count of matching entries
// after the cursor, for polling consumers.
func (h *Handler) CheckNew(c *gin.Context) {
	start := time.Now()
	f, err := parseFilter(c.Query)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	var since int64
	if raw := c.Query("since"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || since < 0 {
			respondErr(c, start, apperr.Validation(fmt.Sprintf("invalid since %q", raw)), h.devMode)
			return
		}
	}
	result, err := h.log.CheckNew(c.Request.Context(), since, f)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondOK(c, start, result)
}

// LatestSequence handles GET /entries/latest.
func (h *Handler) LatestSequence(c *gin.Context) {
	start := time.Now()
	seq, err := h.log.LatestSequence(c.Request.Context())
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondOK(c, start, gin.H{"latestSequence": seq})
}

// ResolveEntry handles POST /entries/:sequence/resolve.
func (h *Handler) ResolveEntry(c *gin.Context) {
	h.setResolved(c, true)
}

// UnresolveEntry handles POST /entries/:sequence/unresolve.
func (h *Handler) UnresolveEntry(c *gin.Context) {
	h.setResolved(c, false)
}

func (h *Handler) setResolved(c *gin.Context, resolved bool) {
	start := time.Now()
	seq, err := sequenceParam(c)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	var e *domain.Entry
	if resolved {
		e, err = h.log.Resolve(c.Request.Context(), seq)
	} else {
		e, err = h.log.Unresolve(c.Request.Context(), seq)
	}
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondOK(c, start, e)
}

// ClearEntries handles DELETE /entries: removes matching entries (all
// when unfiltered) and returns the removed count.
func (h *Handler) ClearEntries(c *gin.Context) {
	start := time.Now()
	f, err := parseFilter(c.Query)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	removed, err := h.log.Clear(c.Request.Context(), f)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondOK(c, start, gin.H{"removed": removed})
}

// Stats handles GET /entries/stats.
func (h *Handler) Stats(c *gin.Context) {
	start := time.Now()
	f, err := parseFilter(c.Query)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	stats, err := h.log.Stats(c.Request.Context(), f)
	if err != nil {
		respondErr(c, start, err, h.devMode)
		return
	}
	respondOK(c, start, stats)
}

func sequenceParam(c *gin.Context) (int64, error) {
	raw := c.Param("sequence")
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq <= 0 {
		return 0, apperr.Validation(fmt.Sprintf("invalid sequence %q", raw))
	}
	return seq, nil
}

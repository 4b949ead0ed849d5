// Package http serves the read-only status API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"telefax/internal/config"
	"telefax/internal/entities"
	"telefax/internal/metrics"
)

// HistoryReader is the part of the history store the API reads.
type HistoryReader interface {
	All() []entities.PrintHistoryEntry
	Len() int
}

// ActivityCounter reports prints in progress.
type ActivityCounter interface {
	Active() int
}

type Handler struct {
	cfg      *config.Config
	history  HistoryReader
	sessions ActivityCounter
	started  time.Time
	logger   *slog.Logger
}

func NewHandler(cfg *config.Config, history HistoryReader, sessions ActivityCounter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:      cfg,
		history:  history,
		sessions: sessions,
		started:  time.Now(),
		logger:   logger,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware, gatherer prometheus.Gatherer) {
	r.Use(SecurityHeaders())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(rate.Limit(2), 10))
	{
		api.GET("/status", h.Status)
		api.GET("/history", h.History)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponse struct {
	PrinterName     string   `json:"printer_name"`
	PrinterReady    bool     `json:"printer_configured"`
	LabelSize       string   `json:"label_size"`
	MaxCopies       int      `json:"max_copies"`
	GuestPrinting   bool     `json:"guest_printing"`
	AuthorizedUsers int      `json:"authorized_users"`
	HistoryEntries  int      `json:"history_entries"`
	ActivePrints    int      `json:"active_prints"`
	Uptime          string   `json:"uptime"`
	ConfigWarnings  []string `json:"config_warnings"`
}

func (h *Handler) Status(c *gin.Context) {
	resp := statusResponse{
		PrinterName:     h.cfg.PrinterName,
		PrinterReady:    h.cfg.PrinterName != "",
		LabelSize:       h.cfg.LabelSize(),
		MaxCopies:       h.cfg.MaxCopies(),
		GuestPrinting:   h.cfg.GuestPrinting,
		AuthorizedUsers: len(h.cfg.AllowedUserIDs()),
		HistoryEntries:  h.history.Len(),
		Uptime:          time.Since(h.started).Truncate(time.Second).String(),
		ConfigWarnings:  h.cfg.Warnings,
	}
	if h.sessions != nil {
		resp.ActivePrints = h.sessions.Active()
	}
	if resp.ConfigWarnings == nil {
		resp.ConfigWarnings = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

type historyItem struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	LastPrint time.Time `json:"last_print"`
}

func (h *Handler) History(c *gin.Context) {
	entries := h.history.All()
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{UserID: e.UserID, Username: e.Username, LastPrint: e.LastPrint})
	}
	h.logger.Debug("history requested", slog.Int64("user_id", c.GetInt64(userIDKey)), slog.Int("entries", len(items)))
	c.JSON(http.StatusOK, gin.H{"count": len(items), "entries": items})
}

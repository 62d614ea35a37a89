package api

import (
	"net/http"
	"strconv"

	"duewatch/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Syncer is the monitor's kick surface, kept narrow so handlers are testable
// without a running poll loop.
type Syncer interface {
	Kick()
}

type Handler struct {
	DB        *gorm.DB
	Cards     *store.CardStore
	Comments  *store.CommentStore
	Reminders *store.ReminderStore
	Monitor   Syncer
}

// ListRemindersHandler serves the paginated ledger, newest first.
// Query params: limit (default 50), offset (default 0), unread_only.
func (h *Handler) ListRemindersHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	var unreadOnly *bool
	if v, ok := c.GetQuery("unread_only"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unread_only must be a boolean"})
			return
		}
		unreadOnly = &parsed
	}

	reminders, err := h.Reminders.List(unreadOnly, limit, offset)
	if err != nil {
		zap.L().Error("Failed to list reminders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reminders"})
		return
	}
	total, err := h.Reminders.Count(unreadOnly)
	if err != nil {
		zap.L().Error("Failed to count reminders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count reminders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "total": total})
}

// MarkReminderReadHandler flips a reminder's read flag. Idempotent; 404 only
// for ids that have never existed.
func (h *Handler) MarkReminderReadHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reminder id"})
		return
	}

	if err := h.Reminders.MarkRead(uint(id)); err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
			return
		}
		zap.L().Error("Failed to mark reminder read", zap.Uint64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark reminder read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCardsHandler serves every tracked card state, soonest due first.
func (h *Handler) ListCardsHandler(c *gin.Context) {
	cards, err := h.Cards.All()
	if err != nil {
		zap.L().Error("Failed to list cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list cards"})
		return
	}
	c.JSON(http.StatusOK, cards)
}

// GetCardHandler serves a single card's stored state.
func (h *Handler) GetCardHandler(c *gin.Context) {
	card, err := h.Cards.Get(c.Param("id"))
	if err != nil {
		zap.L().Error("Failed to load card", zap.String("cardID", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load card"})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found"})
		return
	}
	c.JSON(http.StatusOK, card)
}

// ListCardCommentsHandler serves a card's ingested comments, newest first.
func (h *Handler) ListCardCommentsHandler(c *gin.Context) {
	comments, err := h.Comments.ForCard(c.Param("id"))
	if err != nil {
		zap.L().Error("Failed to list comments", zap.String("cardID", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comments"})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// DashboardDataHandler serves the aggregate counts behind the analytics view.
func (h *Handler) DashboardDataHandler(c *gin.Context) {
	type listCount struct {
		ListName string `json:"list_name"`
		Count    int64  `json:"count"`
	}
	type dayCount struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}
	type statusCount struct {
		IsRead bool  `json:"is_read"`
		Count  int64 `json:"count"`
	}

	var lists []listCount
	if err := h.DB.Raw(
		`SELECT list_name, COUNT(*) AS count
		 FROM card_due_states
		 WHERE due_date IS NOT NULL
		 GROUP BY list_name`).Scan(&lists).Error; err != nil {
		zap.L().Error("Failed to aggregate lists", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard data"})
		return
	}

	var activity []dayCount
	if err := h.DB.Raw(
		`SELECT DATE(created_at) AS date, COUNT(*) AS count
		 FROM reminder_events
		 GROUP BY DATE(created_at)
		 ORDER BY date`).Scan(&activity).Error; err != nil {
		zap.L().Error("Failed to aggregate activity", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard data"})
		return
	}

	var status []statusCount
	if err := h.DB.Raw(
		`SELECT is_read, COUNT(*) AS count
		 FROM reminder_events
		 GROUP BY is_read`).Scan(&status).Error; err != nil {
		zap.L().Error("Failed to aggregate status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lists":    lists,
		"activity": activity,
		"status":   status,
	})
}

// SyncHandler kicks an immediate reconciliation cycle.
func (h *Handler) SyncHandler(c *gin.Context) {
	h.Monitor.Kick()
	c.JSON(http.StatusAccepted, gin.H{"message": "Sync scheduled"})
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

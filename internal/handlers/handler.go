package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"profitshare/internal/distribution"
)

// NotificationPublisher forwards payment notifications to the worker queue.
type NotificationPublisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
}

// Handler serves the distribution and claim API on top of the engine.
type Handler struct {
	engine            *distribution.Engine
	logger            logrus.FieldLogger
	publisher         NotificationPublisher
	notificationQueue string
}

// Option customises a Handler.
type Option func(*Handler)

// WithNotificationQueue makes the payment webhook enqueue notifications for
// the worker instead of applying them inline.
func WithNotificationQueue(p NotificationPublisher, queue string) Option {
	return func(h *Handler) {
		h.publisher = p
		h.notificationQueue = queue
	}
}

func NewHandler(engine *distribution.Engine, logger logrus.FieldLogger, opts ...Option) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Handler{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	RegisterValidators()
	return h
}

// pageRequest reads the cursor and limit query parameters.
func pageRequest(c *gin.Context) (distribution.PageRequest, bool) {
	page := distribution.PageRequest{Cursor: c.Query("cursor")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "code": string(distribution.KindValidation)})
			return distribution.PageRequest{}, false
		}
		page.Limit = limit
	}
	return page.Normalize(), true
}

func pagination(page distribution.PageRequest, next string) CursorPagination {
	return CursorPagination{PageSize: page.Limit, NextCursor: next, HasNext: next != ""}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"profitshare/internal/distribution"
	"profitshare/internal/payment"
)

// PaymentWebhook receives transfer results from the payment gateway. With a
// notification queue configured the notification is enqueued for the worker
// and acknowledged with 202; otherwise it is applied inline.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	n, err := payment.ParseNotification(body)
	if err != nil {
		h.logger.WithField("error", err.Error()).Warn("Rejected malformed payment notification")
		badRequest(c, err)
		return
	}
	logger := h.logger.WithFields(logrus.Fields{
		"payment_id": n.PaymentID,
		"status":     n.Status,
	})

	if h.publisher != nil {
		msg := payment.Notification{PaymentID: n.PaymentID, ExternalID: n.ClaimID, Status: string(n.Status), Reason: n.Reason}
		if err := h.publisher.Publish(c.Request.Context(), h.notificationQueue, msg); err != nil {
			logger.WithField("error", err.Error()).Error("Failed to enqueue payment notification")
			c.Header("Retry-After", retryAfterSeconds)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification could not be queued", "code": string(distribution.KindTransientDependency)})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		return
	}

	outcome, err := h.engine.HandlePaymentNotification(c.Request.Context(), n)
	if err != nil {
		if !errors.Is(err, distribution.ErrClaimNotFound) {
			logger.WithField("error", err.Error()).Error("Payment notification failed")
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": string(outcome)})
}

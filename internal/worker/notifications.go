// Package worker applies queued payment notifications to claims.
package worker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"profitshare/internal/distribution"
	"profitshare/internal/metrics"
	"profitshare/internal/payment"
	"profitshare/pkg/config"
)

// NotificationApplier is the part of the engine the worker drives.
type NotificationApplier interface {
	HandlePaymentNotification(ctx context.Context, n distribution.PaymentNotification) (distribution.NotificationOutcome, error)
}

// NotificationHandler decides whether a payment notification is acked,
// dropped or requeued.
type NotificationHandler struct {
	engine NotificationApplier
	logger logrus.FieldLogger
}

func NewNotificationHandler(engine NotificationApplier, logger logrus.FieldLogger) *NotificationHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NotificationHandler{engine: engine, logger: logger}
}

// Handle implements config.MessageHandler.
//
// A notification matching no claim by payment id or claim id is requeued
// once and dropped on redelivery.
func (h *NotificationHandler) Handle(ctx context.Context, d config.Delivery) error {
	n, err := payment.ParseNotification(d.Body)
	if err != nil {
		metrics.SettlementNotifications.WithLabelValues("malformed").Inc()
		return fmt.Errorf("%w: %v", config.ErrDiscard, err)
	}
	logger := h.logger.WithFields(logrus.Fields{
		"payment_id":  n.PaymentID,
		"claim_id":    n.ClaimID,
		"status":      n.Status,
		"redelivered": d.Redelivered,
	})

	outcome, err := h.engine.HandlePaymentNotification(ctx, n)
	switch {
	case err == nil:
		logger.WithField("outcome", outcome).Info("Payment notification applied")
		return nil
	case distribution.IsKind(err, distribution.KindNotFound):
		if d.Redelivered {
			return fmt.Errorf("%w: %v", config.ErrDiscard, err)
		}
		logger.Warn("No claim matches payment notification, requeueing")
		return err
	case distribution.IsKind(err, distribution.KindValidation):
		return fmt.Errorf("%w: %v", config.ErrDiscard, err)
	default:
		return err
	}
}

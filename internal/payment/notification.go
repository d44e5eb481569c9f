package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"profitshare/internal/distribution"
)

// ErrMalformedNotification means a notification can never be processed and
// should not be redelivered.
var ErrMalformedNotification = errors.New("malformed payment notification")

// Notification is the callback body the gateway posts when a transfer
// finishes. The same body is forwarded on the payment notification queue.
type Notification struct {
	PaymentID  string `json:"paymentId"`
	ExternalID string `json:"externalId,omitempty"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// ParseNotification decodes a gateway callback into the domain notification.
func ParseNotification(body []byte) (distribution.PaymentNotification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return distribution.PaymentNotification{}, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}
	return n.ToDomain()
}

// ToDomain validates the notification and maps gateway status codes.
func (n Notification) ToDomain() (distribution.PaymentNotification, error) {
	if strings.TrimSpace(n.PaymentID) == "" {
		return distribution.PaymentNotification{}, fmt.Errorf("%w: paymentId is required", ErrMalformedNotification)
	}
	var status distribution.PaymentNotificationStatus
	switch strings.ToLower(strings.TrimSpace(n.Status)) {
	case "completed", "success", "succeeded":
		status = distribution.PaymentCompleted
	case "failed", "failure", "rejected", "returned":
		status = distribution.PaymentFailed
	default:
		return distribution.PaymentNotification{}, fmt.Errorf("%w: unknown status %q", ErrMalformedNotification, n.Status)
	}
	return distribution.PaymentNotification{
		PaymentID: strings.TrimSpace(n.PaymentID),
		ClaimID:   strings.TrimSpace(n.ExternalID),
		Status:    status,
		Reason:    n.Reason,
	}, nil
}

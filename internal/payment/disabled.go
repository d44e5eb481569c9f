package payment

import (
	"context"
	"errors"

	"profitshare/internal/distribution"
)

// ErrGatewayNotConfigured is returned by Disabled for every transfer.
var ErrGatewayNotConfigured = errors.New("payment gateway not configured")

// Disabled is the gateway used when no payout provider is configured. Claim
// requests fail and are rolled back to pending.
type Disabled struct{}

func (Disabled) Initiate(context.Context, distribution.TransferRequest) (string, error) {
	return "", ErrGatewayNotConfigured
}

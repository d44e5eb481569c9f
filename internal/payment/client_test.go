package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitshare/internal/distribution"
	"profitshare/pkg/money"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestInitiate(t *testing.T) {
	var got transferPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payout/transfer", r.URL.Path)
		assert.Equal(t, "channel-1", r.Header.Get("channel"))
		assert.Equal(t, "s3cret", r.Header.Get("secret"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"code":null,"data":{"paymentId":"pay-123"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL + "/api", Channel: "channel-1", Secret: "s3cret", Currency: "USD"}, quietLogger())
	require.NoError(t, err)

	paymentID, err := client.Initiate(context.Background(), distribution.TransferRequest{
		ClaimID:     "d1_alice",
		UserID:      "alice",
		Amount:      money.Amount(950000),
		BankDetails: distribution.BankDetails{AccountNumber: "LB001", AccountHolder: "Alice", BankCode: "B1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-123", paymentID)
	assert.Equal(t, "9500.00", got.Amount)
	assert.Equal(t, "d1_alice", got.ExternalID)
	assert.Equal(t, "USD", got.Currency)

	t.Run("Request currency overrides the client default", func(t *testing.T) {
		_, err := client.Initiate(context.Background(), distribution.TransferRequest{
			ClaimID:     "d1_bob",
			Amount:      money.Amount(100),
			Currency:    "EUR",
			BankDetails: distribution.BankDetails{AccountNumber: "LB002"},
		})
		require.NoError(t, err)
		assert.Equal(t, "EUR", got.Currency)
		assert.Equal(t, "d1_bob", got.ExternalID)
	})
}

func TestInitiateGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"code":"INSUFFICIENT_FUNDS","message":"float account empty"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Channel: "c", Secret: "s"}, quietLogger())
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), distribution.TransferRequest{ClaimID: "d1_alice", Amount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSUFFICIENT_FUNDS")
}

func TestInitiateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Channel: "c", Secret: "s"}, quietLogger())
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), distribution.TransferRequest{ClaimID: "d1_alice", Amount: 1})
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestInitiateRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Channel: "c", Secret: "s"}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Initiate(ctx, distribution.TransferRequest{ClaimID: "d1_alice", Amount: 1})
	assert.Error(t, err)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://gw"}, nil)
	assert.Error(t, err)
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification([]byte(`{"paymentId":"pay-1","status":"SUCCESS"}`))
	require.NoError(t, err)
	assert.Equal(t, distribution.PaymentCompleted, n.Status)
	assert.Equal(t, "pay-1", n.PaymentID)
	assert.Empty(t, n.ClaimID)

	n, err = ParseNotification([]byte(`{"paymentId":"pay-1","externalId":" d1_alice ","status":"completed"}`))
	require.NoError(t, err)
	assert.Equal(t, "d1_alice", n.ClaimID)

	n, err = ParseNotification([]byte(`{"paymentId":"pay-1","status":"failed","reason":"account closed"}`))
	require.NoError(t, err)
	assert.Equal(t, distribution.PaymentFailed, n.Status)
	assert.Equal(t, "account closed", n.Reason)

	_, err = ParseNotification([]byte(`{"status":"completed"}`))
	assert.ErrorIs(t, err, ErrMalformedNotification)

	_, err = ParseNotification([]byte(`{"paymentId":"pay-1","status":"pending"}`))
	assert.ErrorIs(t, err, ErrMalformedNotification)

	_, err = ParseNotification([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedNotification)
}

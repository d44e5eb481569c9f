package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profitshare/internal/distribution"
	"profitshare/internal/handlers"
	"profitshare/internal/middleware"
	"profitshare/internal/payment"
	"profitshare/internal/routes"
	"profitshare/internal/store/memory"
)

var (
	jwtSecret     = []byte("routes-test-secret")
	webhookSecret = "hook-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct {
	mu   sync.Mutex
	n    int
	fail bool
}

func (g *stubGateway) Initiate(_ context.Context, _ distribution.TransferRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return "", fmt.Errorf("gateway unavailable")
	}
	g.n++
	return fmt.Sprintf("pay-%d", g.n), nil
}

type stubPublisher struct {
	queue    string
	messages []any
	err      error
}

func (p *stubPublisher) Publish(_ context.Context, queue string, msg interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.queue = queue
	p.messages = append(p.messages, msg)
	return nil
}

type apiHarness struct {
	t       *testing.T
	router  *gin.Engine
	ledger  *memory.Ledger
	gateway *stubGateway
}

func newAPI(t *testing.T, opts ...handlers.Option) *apiHarness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	ledger := memory.NewLedger()
	gateway := &stubGateway{}
	engine, err := distribution.New(distribution.DefaultConfig(), distribution.Deps{
		Distributions: store,
		Claims:        store,
		Ledger:        ledger,
		Payments:      gateway,
		Logger:        logger,
	})
	require.NoError(t, err)

	h := handlers.NewHandler(engine, logger, opts...)
	router := routes.SetupRouter(context.Background(), h, routes.RouterConfig{
		JWTSecret:     jwtSecret,
		WebhookSecret: webhookSecret,
		Logger:        logger,
	})
	return &apiHarness{t: t, router: router, ledger: ledger, gateway: gateway}
}

func (a *apiHarness) token(userID, role string) string {
	tok, err := middleware.IssueToken(jwtSecret, userID, role, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiHarness) webhook(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.WebhookSecretHeader, webhookSecret)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func createBody(quarter int) map[string]any {
	return map[string]any{
		"project_id": "solar-1",
		"period": map[string]any{
			"start_date": "2024-01-01T00:00:00Z",
			"end_date":   "2024-03-31T23:59:59Z",
			"quarter":    quarter,
			"year":       2024,
		},
		"total_profit": "100000.00",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *apiHarness) createDistribution() handlers.DistributionResponse {
	a.ledger.SetHoldings("solar-1",
		distribution.Holding{UserID: "alice", TokenAmount: 10},
		distribution.Holding{UserID: "bob", TokenAmount: 90},
	)
	w := a.do(http.MethodPost, "/api/admin/distributions", a.token("admin-1", middleware.RoleAdmin), createBody(1))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[handlers.DistributionResponse](a.t, w)
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	w := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCreateDistribution(t *testing.T) {
	t.Run("Admin creates distribution", func(t *testing.T) {
		api := newAPI(t)
		d := api.createDistribution()
		assert.Equal(t, "100000.00", d.TotalProfit)
		assert.Equal(t, "5000.00", d.PlatformFee)
		assert.Equal(t, "95000.00", d.DistributedProfit)
		assert.Equal(t, "950.00000000", d.ProfitPerToken)
		assert.Equal(t, 2, d.HolderCount)
		assert.Equal(t, "distributed", d.Status)
		assert.Equal(t, "admin-1", d.AdminID)
	})

	t.Run("Duplicate period is a conflict", func(t *testing.T) {
		api := newAPI(t)
		api.createDistribution()
		w := api.do(http.MethodPost, "/api/admin/distributions", api.token("admin-1", middleware.RoleAdmin), createBody(1))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Investor is forbidden", func(t *testing.T) {
		api := newAPI(t)
		w := api.do(http.MethodPost, "/api/admin/distributions", api.token("alice", middleware.RoleInvestor), createBody(1))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Quarter out of range", func(t *testing.T) {
		api := newAPI(t)
		w := api.do(http.MethodPost, "/api/admin/distributions", api.token("admin-1", middleware.RoleAdmin), createBody(5))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed amount", func(t *testing.T) {
		api := newAPI(t)
		body := createBody(1)
		body["total_profit"] = "12.345"
		w := api.do(http.MethodPost, "/api/admin/distributions", api.token("admin-1", middleware.RoleAdmin), body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("No circulating tokens", func(t *testing.T) {
		api := newAPI(t)
		w := api.do(http.MethodPost, "/api/admin/distributions", api.token("admin-1", middleware.RoleAdmin), createBody(1))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "validation")
	})
}

func TestClaimFlow(t *testing.T) {
	api := newAPI(t)
	d := api.createDistribution()
	alice := api.token("alice", middleware.RoleInvestor)
	bob := api.token("bob", middleware.RoleInvestor)
	claimID := distribution.ClaimID(d.ID, "alice")

	w := api.do(http.MethodGet, "/api/claims", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data       []handlers.ClaimResponse  `json:"data"`
		Pagination handlers.CursorPagination `json:"pagination"`
	}](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "9500.00", list.Data[0].ClaimableAmount)
	assert.False(t, list.Pagination.HasNext)

	t.Run("Other investor cannot read or request the claim", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/claims/"+claimID, bob, nil).Code)
		w := api.do(http.MethodPost, "/api/claims/"+claimID+"/request", bob, map[string]string{"bank_account": "LB0000000001"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	w = api.do(http.MethodPost, "/api/distributions/"+d.ID+"/claim", alice, map[string]string{"bank_account": "LB0012345678"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	claim := decode[handlers.ClaimResponse](t, w)
	assert.Equal(t, "processing", claim.Status)
	require.NotNil(t, claim.PaymentDetails)
	assert.Equal(t, "pay-1", claim.PaymentDetails.PaymentID)
	assert.Equal(t, "********5678", claim.PaymentDetails.BankAccount)

	t.Run("Second request conflicts", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/distributions/"+d.ID+"/claim", alice, map[string]string{"bank_account": "LB0012345678"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	w = api.webhook(`{"paymentId":"pay-1","status":"success"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"outcome":"settled"}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/claims/"+claimID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	claim = decode[handlers.ClaimResponse](t, w)
	assert.Equal(t, "completed", claim.Status)
	assert.Equal(t, "9500.00", claim.ClaimedAmount)

	t.Run("Redelivered notification is a no-op", func(t *testing.T) {
		w := api.webhook(`{"paymentId":"pay-1","status":"success"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Admin reconciles", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/admin/distributions/"+d.ID+"/reconciliation", api.token("admin-1", middleware.RoleAdmin), nil)
		require.Equal(t, http.StatusOK, w.Code)
		report := decode[handlers.ReconciliationResponse](t, w)
		assert.True(t, report.Balanced)
		assert.False(t, report.Complete)
		assert.Equal(t, 1, report.CompletedCount)
		assert.Equal(t, 1, report.PendingCount)
		assert.Equal(t, "9500.00", report.TotalClaimed)
	})
}

func TestRequestClaimGatewayFailure(t *testing.T) {
	api := newAPI(t)
	d := api.createDistribution()
	api.gateway.fail = true

	w := api.do(http.MethodPost, "/api/distributions/"+d.ID+"/claim", api.token("alice", middleware.RoleInvestor), map[string]string{"bank_account": "LB0012345678"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))

	w = api.do(http.MethodGet, "/api/claims/"+distribution.ClaimID(d.ID, "alice"), api.token("alice", middleware.RoleInvestor), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode[handlers.ClaimResponse](t, w).Status)
}

func TestWebhook(t *testing.T) {
	t.Run("Missing secret", func(t *testing.T) {
		api := newAPI(t)
		w := api.do(http.MethodPost, "/webhooks/payments", "", map[string]string{"paymentId": "p", "status": "success"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		api := newAPI(t)
		assert.Equal(t, http.StatusBadRequest, api.webhook(`{"status":"success"}`).Code)
		assert.Equal(t, http.StatusBadRequest, api.webhook(`not json`).Code)
	})

	t.Run("Unknown completed payment", func(t *testing.T) {
		api := newAPI(t)
		assert.Equal(t, http.StatusNotFound, api.webhook(`{"paymentId":"nope","status":"success"}`).Code)
	})

	t.Run("Unknown failed payment is ignored", func(t *testing.T) {
		api := newAPI(t)
		w := api.webhook(`{"paymentId":"nope","status":"failed"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"outcome":"ignored"}`, w.Body.String())
	})

	t.Run("Queued when a publisher is configured", func(t *testing.T) {
		pub := &stubPublisher{}
		api := newAPI(t, handlers.WithNotificationQueue(pub, "payment_notifications"))
		w := api.webhook(`{"paymentId":"pay-7","externalId":"d1_alice","status":"rejected","reason":"closed account"}`)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "payment_notifications", pub.queue)
		require.Len(t, pub.messages, 1)
		assert.Equal(t, payment.Notification{
			PaymentID:  "pay-7",
			ExternalID: "d1_alice",
			Status:     "failed",
			Reason:     "closed account",
		}, pub.messages[0])
	})

	t.Run("Queue unavailable", func(t *testing.T) {
		pub := &stubPublisher{err: fmt.Errorf("channel closed")}
		api := newAPI(t, handlers.WithNotificationQueue(pub, "payment_notifications"))
		w := api.webhook(`{"paymentId":"pay-7","status":"success"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestListProjectDistributionsPagination(t *testing.T) {
	api := newAPI(t)
	api.createDistribution()
	admin := api.token("admin-1", middleware.RoleAdmin)
	w := api.do(http.MethodPost, "/api/admin/distributions", admin, createBody(2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	alice := api.token("alice", middleware.RoleInvestor)
	w = api.do(http.MethodGet, "/api/projects/solar-1/distributions?limit=1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Data       []handlers.DistributionResponse `json:"data"`
		Pagination handlers.CursorPagination       `json:"pagination"`
	}](t, w)
	require.Len(t, page.Data, 1)
	require.True(t, page.Pagination.HasNext)

	w = api.do(http.MethodGet, "/api/projects/solar-1/distributions?limit=1&cursor="+page.Pagination.NextCursor, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[struct {
		Data []handlers.DistributionResponse `json:"data"`
	}](t, w)
	require.Len(t, second.Data, 1)
	assert.NotEqual(t, page.Data[0].ID, second.Data[0].ID)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/projects/solar-1/distributions?limit=abc", alice, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/projects/solar-1/distributions?cursor=garbage", alice, nil).Code)
}

package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/orderdesk/internal/chatbot"
	"github.com/wolfman30/orderdesk/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/orderdesk/internal/http/middleware"
	"github.com/wolfman30/orderdesk/internal/observability/metrics"
	"github.com/wolfman30/orderdesk/internal/orders"
	"github.com/wolfman30/orderdesk/pkg/logging"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T, readiness func(context.Context) error) http.Handler {
	t.Helper()

	logger := logging.Default()
	store := orders.NewMemoryStore()
	store.AddOrder("tenant-1", orders.OrderView{
		ID:            "o-1",
		OrderNumber:   "123",
		Status:        orders.StatusReady,
		PaymentStatus: orders.PaymentPaid,
		TotalAmount:   2500,
		Customer:      orders.Customer{ID: "c-1", Name: "Awa Koné"},
		AgencyName:    "Agence Plateau",
		CreatedAt:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	reg := prometheus.NewRegistry()
	engine := chatbot.NewEngine(chatbot.EngineConfig{
		Store:   store,
		Logger:  logger,
		Metrics: metrics.NewChatbotMetrics(reg),
	})
	limiter := httpmiddleware.NewRateLimiter(100, 100)
	t.Cleanup(limiter.Close)

	cfg := &Config{
		Logger:         logger,
		ChatbotHandler: handlers.NewChatbotHandler(handlers.ChatbotHandlerConfig{Engine: engine, Logger: logger}),
		AuthSecret:     testSecret,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RateLimiter:    limiter,
		Readiness:      readiness,
	}
	return New(cfg)
}

func bearer(t *testing.T, tenantID string) string {
	t.Helper()
	return bearerWithRole(t, tenantID, "staff")
}

func bearerWithRole(t *testing.T, tenantID, role string) string {
	t.Helper()
	claims := httpmiddleware.TenantClaims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterReadiness(t *testing.T) {
	router := newTestRouter(t, func(context.Context) error { return errors.New("db down") })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRouterChatbotRequiresAuth(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/chatbot/message", strings.NewReader(`{"message":"Bonjour"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRouterChatbotMessage(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/chatbot/message", strings.NewReader(`{"message":"Quand sera prête la commande 123 ?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "tenant-1"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool           `json:"success"`
		Data    chatbot.Result `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data.IntentType != chatbot.TypeDeliveryInfo {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(resp.Data.ResponseText, "Agence Plateau") {
		t.Fatalf("expected agency in delivery answer, got %q", resp.Data.ResponseText)
	}
}

func TestRouterChatbotIsTenantScoped(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/chatbot/message", strings.NewReader(`{"message":"statut 123"}`))
	req.Header.Set("Authorization", bearer(t, "tenant-2"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var resp struct {
		Data chatbot.Result `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.IntentType != chatbot.TypeError {
		t.Fatalf("expected other tenant's order to be invisible, got %q", resp.Data.IntentType)
	}
}

func TestRouterChatbotAuditRoleGuard(t *testing.T) {
	router := newTestRouter(t, nil)

	cases := []struct {
		role   string
		status int
	}{
		{"staff", http.StatusOK},
		{"admin", http.StatusOK},
		{"customer", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/chatbot/audit?event_type=chatbot.not_found", nil)
		req.Header.Set("Authorization", bearerWithRole(t, "tenant-1", tc.role))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != tc.status {
			t.Fatalf("role %s: expected %d, got %d (%s)", tc.role, tc.status, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/chatbot/message", strings.NewReader(`{"message":"Bonjour"}`))
	req.Header.Set("Authorization", bearer(t, "tenant-1"))
	router.ServeHTTP(httptest.NewRecorder(), req)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `orderdesk_chatbot_requests_total{intent="greeting",outcome="answered"} 1`) {
		t.Fatalf("expected chatbot counter in metrics output")
	}
}

package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ramtunguturi36/hair/internal/auth"
	"github.com/ramtunguturi36/hair/internal/config"
	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/metrics"
	"github.com/ramtunguturi36/hair/internal/middleware"
	"github.com/ramtunguturi36/hair/internal/repo"
	"github.com/ramtunguturi36/hair/internal/service"
	_ "github.com/ramtunguturi36/hair/docs"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopAnalyzer struct{}

func (nopAnalyzer) Analyze(context.Context, []byte, string) (service.AnalyzerResult, error) {
	return service.AnalyzerResult{HairType: "Type 1 Straight", Confidence: 90}, nil
}

type nopHistory struct{}

func (nopHistory) Create(_ context.Context, a dom.Analysis) (dom.Analysis, error) { return a, nil }
func (nopHistory) ListByAccount(context.Context, string, int) ([]dom.Analysis, error) {
	return []dom.Analysis{}, nil
}

type nopPayments struct{}

func (nopPayments) Exists(context.Context, string) (bool, error) { return false, nil }
func (nopPayments) Create(_ context.Context, c dom.PaymentConfirmation) (dom.PaymentConfirmation, error) {
	return c, nil
}
func (nopPayments) ListByAccount(context.Context, string) ([]dom.PaymentConfirmation, error) {
	return nil, nil
}

type nopProvider struct{}

func (nopProvider) CreateCheckout(context.Context, service.CheckoutRequest) (service.CheckoutSession, error) {
	return service.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}
func (nopProvider) LookupSession(context.Context, string) (dom.PaidSession, error) {
	return dom.PaidSession{}, nil
}
func (nopProvider) ParseWebhook([]byte, string) (service.WebhookEvent, error) {
	return service.WebhookEvent{Type: "ping"}, nil
}

type nopGuard struct{}

func (nopGuard) Claim(context.Context, string) (bool, error) { return true, nil }
func (nopGuard) Release(context.Context, string) error       { return nil }
func (nopGuard) Persist(context.Context, string) error       { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *rsa.PrivateKey) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := logtest.NewNullLogger()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil, time.Second)
	require.NoError(t, err)

	var cfg config.Config
	cfg.App.Env = "test"
	cfg.App.Version = "1.2.3"
	cfg.Upload.MaxImageBytes = 1 << 20

	m := metrics.New()
	ledgers := service.NewLedgerRegistry(repo.NewMemoryProfileRepo(), service.WithLogger(log))
	history := service.NewHistoryService(nopHistory{}, nil)
	deps := routeDeps{
		log:      log,
		verifier: verifier,
		metrics:  m,
		limiter:  middleware.NewRateLimiter(100, 100, log),
		ledgers:  ledgers,
		history:  history,
		analyses: service.NewAnalysisService(nopAnalyzer{}, history, service.AnalysisServiceConfig{Cost: 25}, m, log),
		payments: service.NewPaymentService(nopProvider{}, nopPayments{}, nopGuard{}, ledgers, service.PaymentServiceConfig{}, m, log),
	}

	r := gin.New()
	r.Use(m.Middleware())
	Setup(r, cfg, deps)
	return r, key
}

func token(t *testing.T, key *rsa.PrivateKey, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, auth.Claims{
		SessionID: "sess_1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(key)
	require.NoError(t, err)
	return s
}

func get(r http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"env":"test"}`, w.Body.String())

	w = get(r, "/version", "")
	assert.JSONEq(t, `{"version":"1.2.3"}`, w.Body.String())

	w = get(r, "/api/v1/plans", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"popular"`)

	w = get(r, "/swagger-doc.json", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger")

	w = get(r, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hair_http_requests_total")
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/credits", "/api/v1/history", "/api/v1/payments", "/api/v1/routine"} {
		w := get(r, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := get(r, "/api/v1/credits", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreditsWithSessionToken(t *testing.T) {
	r, key := newTestRouter(t)

	w := get(r, "/api/v1/credits", token(t, key, "user_1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(150), body["balance"])
	assert.Equal(t, float64(25), body["analysis_cost"])

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, key, "user_1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/database"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/localstore"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/payment"
)

const (
	keySecret     = "test_key_secret"
	webhookSecret = "test_webhook_secret"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Env: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1},
		JWT: config.JWTConfig{
			AccessSecret: "access", RefreshSecret: "refresh",
			AccessExpiry: time.Minute, RefreshExpiry: time.Hour, Issuer: "test",
		},
		Storage: config.StorageConfig{LocalDir: dir, PublicURL: "/media", MaxFileSizeMB: 5, MaxFiles: 10, UploadWorkers: 2},
		Payment: config.PaymentConfig{
			Provider: "stub", KeyID: "rzp_test_key", KeySecret: keySecret, WebhookSecret: webhookSecret,
			Currency: "INR", Timeout: 5 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, withGateway bool) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	db, err := database.NewDB(&cfg.Database)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	deps := Deps{Media: service.NewDiskStore(localstore.New(dir, "/media"))}
	if withGateway {
		deps.Gateway = &payment.StubGateway{Key: cfg.Payment.KeyID, Secret: keySecret}
	}
	engine, cleanup, err := Setup(cfg, db, deps)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return engine
}

func call(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func registerUser(t *testing.T, r *gin.Engine, username string) map[string]interface{} {
	t.Helper()
	w := call(r, http.MethodPost, "/api/accounts/register/", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "supersecret", "role": "creator",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func register(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	return registerUser(t, r, username)["access"].(string)
}

func createFilm(t *testing.T, r *gin.Engine, token, title string) map[string]interface{} {
	t.Helper()
	return createFilmWith(t, r, token, title, nil)
}

// createFilmWith posts a valid film form plus any extra fields.
func createFilmWith(t *testing.T, r *gin.Engine, token, title string, extra map[string]string) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("description", "a short film"))
	require.NoError(t, mw.WriteField("goal_amount", "1000.00"))
	require.NoError(t, mw.WriteField("reward_tiers", `[{"amount":"100","reward":"Credits mention"}]`))
	part, err := mw.CreateFormFile("poster_image", "poster.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/projects/film/create/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func webhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Razorpay-Signature", signature)
	req.Header.Set("X-Razorpay-Event-Id", "evt_1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func raised(t *testing.T, project map[string]interface{}) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(project["raised_amount"]))
	require.NoError(t, err)
	return d
}

func TestHealthz(t *testing.T) {
	r := newTestServer(t, true)
	w := call(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProjectLifecycle(t *testing.T) {
	r := newTestServer(t, true)
	alice := register(t, r, "alice")
	bob := register(t, r, "bob")

	created := createFilm(t, r, alice, "Night Train")
	assert.Equal(t, "film", created["category"])
	assert.Equal(t, "film-1", created["unique_id"])
	assert.Equal(t, "alice", created["creator_name"])
	assert.True(t, strings.HasPrefix(created["poster_image"].(string), "/media/"))

	w := call(r, http.MethodGet, "/api/projects/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed, 1)

	w = call(r, http.MethodGet, "/api/projects/my/", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = call(r, http.MethodPut, "/api/projects/my/film/1/update/", bob, map[string]string{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])

	w = call(r, http.MethodPut, "/api/projects/my/film/1/update/", alice, map[string]string{"title": "Night Train II"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Night Train II", decode(t, w)["title"])

	w = call(r, http.MethodGet, "/api/projects/poetry/1/", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CATEGORY", decode(t, w)["code"])

	w = call(r, http.MethodDelete, "/api/projects/my/film/1/delete/", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, http.MethodDelete, "/api/projects/my/film/1/delete/", alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(r, http.MethodGet, "/api/projects/film/1/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProject_RequiresAuthAndPoster(t *testing.T) {
	r := newTestServer(t, true)

	w := call(r, http.MethodPost, "/api/projects/film/create/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	alice := register(t, r, "alice")
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "No poster"))
	require.NoError(t, mw.WriteField("goal_amount", "10"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/projects/film/create/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["details"], "poster_image")
}

func TestPaymentFlow_VerifyThenWebhookCreditsOnce(t *testing.T) {
	r := newTestServer(t, true)
	alice := register(t, r, "alice")
	createFilm(t, r, alice, "Night Train")

	w := call(r, http.MethodPost, "/api/payments/create-order/", "", map[string]interface{}{
		"amount": "500.00", "category": "film", "project_id": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	order := res["order"].(map[string]interface{})
	orderID := order["id"].(string)
	assert.EqualValues(t, 50000, order["amount"])
	assert.Equal(t, "project_film_1", order["receipt"])
	assert.Equal(t, "rzp_test_key", res["key"])
	localID := res["payment_id"]

	w = call(r, http.MethodPost, "/api/payments/verify/", "", map[string]interface{}{
		"razorpay_order_id": orderID, "razorpay_payment_id": "pay_1", "razorpay_signature": "bogus", "payment_id": localID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SIGNATURE_INVALID", decode(t, w)["code"])

	// the failed payment is still promoted by the signed captured event
	body := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":%q,"amount":50000}}}}`, orderID))
	w = webhook(r, body, "bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", decode(t, w)["code"])

	w = webhook(r, body, payment.Sign(body, webhookSecret))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = webhook(r, body, payment.Sign(body, webhookSecret))
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodPost, "/api/payments/verify/", "", map[string]interface{}{
		"razorpay_order_id": orderID, "razorpay_payment_id": "pay_1",
		"razorpay_signature": payment.PaymentSignature(orderID, "pay_1", keySecret), "payment_id": localID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["updated"])

	w = call(r, http.MethodGet, "/api/projects/film/1/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, raised(t, decode(t, w)).Equal(decimal.NewFromInt(500)))
}

func TestPaymentFlow_VerifyMarksPaid(t *testing.T) {
	r := newTestServer(t, true)

	w := call(r, http.MethodPost, "/api/payments/create-order/", "", map[string]interface{}{"amount": 20, "category": "art"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	orderID := res["order"].(map[string]interface{})["id"].(string)

	w = call(r, http.MethodPost, "/api/payments/verify/", "", map[string]interface{}{
		"razorpay_order_id": orderID, "razorpay_payment_id": "pay_9",
		"razorpay_signature": payment.PaymentSignature(orderID, "pay_9", keySecret), "payment_id": fmt.Sprint(res["payment_id"]),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, true, out["updated"])
}

func TestPayments_ErrorMapping(t *testing.T) {
	r := newTestServer(t, true)

	w := call(r, http.MethodPost, "/api/payments/create-order/", "", map[string]interface{}{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AMOUNT", decode(t, w)["code"])

	w = call(r, http.MethodPost, "/api/payments/create-order/", "", map[string]interface{}{"amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/api/payments/verify/", "", map[string]interface{}{"razorpay_order_id": "order_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_PARAMETERS", decode(t, w)["code"])

	w = webhook(r, []byte("not json"), payment.Sign([]byte("not json"), webhookSecret))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MALFORMED_PAYLOAD", decode(t, w)["code"])
}

func TestPayments_UnavailableWithoutGateway(t *testing.T) {
	r := newTestServer(t, false)

	w := call(r, http.MethodPost, "/api/payments/create-order/", "", map[string]interface{}{"amount": 10, "category": "film"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, w)["code"])

	w = call(r, http.MethodPost, "/api/payments/create-order/", "", map[string]interface{}{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AMOUNT", decode(t, w)["code"])
}

func TestCreateAndUpdate_IgnoreForgedCreator(t *testing.T) {
	r := newTestServer(t, true)
	alice := register(t, r, "alice")
	bobUser := registerUser(t, r, "bob")
	bob := bobUser["access"].(string)
	bobID := fmt.Sprint(bobUser["user"].(map[string]interface{})["id"])

	created := createFilmWith(t, r, alice, "Mine", map[string]string{"creator": bobID, "creator_id": bobID})
	assert.Equal(t, "alice", created["creator_name"])
	assert.NotEqual(t, bobID, fmt.Sprint(created["creator"]))

	w := call(r, http.MethodPut, "/api/projects/my/film/1/update/", alice, map[string]interface{}{
		"title": "Still mine", "creator": bobUser["user"].(map[string]interface{})["id"],
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice", decode(t, w)["creator_name"])

	w = call(r, http.MethodGet, "/api/projects/my/", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Still mine", mine[0]["title"])

	w = call(r, http.MethodGet, "/api/projects/my/", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	// bob still cannot touch it
	w = call(r, http.MethodDelete, "/api/projects/my/film/1/delete/", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	r := newTestServer(t, true)
	u := registerUser(t, r, "alice")
	access, refresh := u["access"].(string), u["refresh"].(string)

	w := call(r, http.MethodPost, "/api/accounts/logout/", "", map[string]string{"refresh": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodPost, "/api/accounts/logout/", access, map[string]string{"refresh": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])

	w = call(r, http.MethodPost, "/api/accounts/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/accounts/logout/", access, map[string]string{"refresh": refresh})
	assert.Equal(t, http.StatusResetContent, w.Code)

	w = call(r, http.MethodPost, "/api/accounts/refresh/", "", map[string]string{"refresh": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])
}

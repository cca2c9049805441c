package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/secret"
	"secret-gateway/internal/security/envelope"
	"secret-gateway/internal/storage/memory"

	"github.com/gin-gonic/gin"
)

// testConfig 測試用配置：關閉速率限制，使用進程內倉儲。
func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "secret-gateway",
			Version: "test",
			Debug:   false,
		},
		Server: config.ServerConfig{
			Host:    "localhost",
			Port:    "8080",
			Timeout: 10,
		},
		Database: config.DatabaseConfig{
			Driver: "memory",
		},
		Log: config.LogConfig{
			RotationTimeHours: 24,
			MaxAgeDays:        7,
			MaxSizeMB:         100,
		},
		Limits: config.LimitsConfig{
			RateLimiting: config.RateLimitingConfig{
				Enabled: false,
			},
		},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.SecretStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if err := config.Load(testConfig()); err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	store := memory.NewSecretStore()
	return Router(secret.NewService(store)), store
}

// createBody 產生一組合法的建立請求體。
func createBody(t *testing.T, expiry string) ([]byte, *envelope.EncryptionResult) {
	t.Helper()

	result, err := envelope.Encrypt([]byte("meet me at midnight"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	body, err := json.Marshal(gin.H{
		"ciphertext": envelope.EncodeSegment(result.Ciphertext),
		"iv":         envelope.EncodeSegment(result.IV),
		"authTag":    envelope.EncodeSegment(result.AuthTag),
		"expiry":     expiry,
	})
	if err != nil {
		t.Fatal(err)
	}
	return body, result
}

func postJSON(router *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateSecretEndpoint(t *testing.T) {
	router, store := newTestRouter(t)

	body, _ := createBody(t, "1h")
	w := postJSON(router, "/api/v1/secrets", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("狀態碼 = %d, want 201, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID        string `json:"id"`
		ExpiresAt string `json:"expiresAt"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析回應失敗: %v", err)
	}
	if err := secret.ValidateID(resp.ID); err != nil {
		t.Errorf("回應 ID 非法: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
		t.Errorf("expiresAt 非 RFC3339: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("倉儲記錄數 = %d, want 1", store.Len())
	}
}

func TestCreateSecretComposesConfiguredURL(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Server.LinkBaseURL = "https://secrets.example.com/"
	if err := config.Load(cfg); err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	router := Router(secret.NewService(memory.NewSecretStore()))

	body, _ := createBody(t, "1h")
	w := postJSON(router, "/api/v1/secrets", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("狀態碼 = %d, want 201", w.Code)
	}

	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := "https://secrets.example.com/s/" + resp.ID
	if resp.URL != want {
		t.Errorf("url = %q, want %q", resp.URL, want)
	}
}

func TestErrorResponsesCarryCodes(t *testing.T) {
	router, _ := newTestRouter(t)

	// 畸形建立請求 → 2001
	w := postJSON(router, "/api/v1/secrets", []byte("not json"))
	assertErrorCode(t, w, http.StatusBadRequest, 2001)

	// 未知 ID 查詢 → 4001
	req := httptest.NewRequest(http.MethodGet, "/api/v1/secrets/00000000000000000000000000000000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assertErrorCode(t, rec, http.StatusNotFound, 4001)
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus, wantCode int) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("狀態碼 = %d, want %d, body: %s", w.Code, wantStatus, w.Body.String())
	}
	var resp struct {
		Code    int  `json:"code"`
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != wantCode {
		t.Errorf("錯誤代碼 = %d, want %d", resp.Code, wantCode)
	}
	if resp.Success {
		t.Error("錯誤回應的 success 應為 false")
	}
}

func TestCreateSecretRejectsBadInput(t *testing.T) {
	router, store := newTestRouter(t)

	valid, _ := createBody(t, "1h")

	tests := []struct {
		name string
		body []byte
	}{
		{"非 JSON", []byte("not json at all")},
		{"未知過期枚舉", mustMutate(t, valid, "expiry", "2h")},
		{"密文帶填充", mustMutate(t, valid, "ciphertext", "YWJj=")},
		{"IV 長度錯誤", mustMutate(t, valid, "iv", envelope.EncodeSegment(make([]byte, 8)))},
		{"認證標籤長度錯誤", mustMutate(t, valid, "authTag", envelope.EncodeSegment(make([]byte, 8)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(router, "/api/v1/secrets", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("狀態碼 = %d, want 400, body: %s", w.Code, w.Body.String())
			}
		})
	}

	if store.Len() != 0 {
		t.Errorf("非法請求仍寫入了倉儲")
	}
}

// mustMutate 覆寫 JSON 請求體中的單一欄位。
func mustMutate(t *testing.T, body []byte, field, value string) []byte {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	m[field] = value
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestPeekSecretEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := createBody(t, "15m")
	created := postJSON(router, "/api/v1/secrets", body)
	if created.Code != http.StatusCreated {
		t.Fatalf("建立失敗: %d", created.Code)
	}
	var createResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &createResp); err != nil {
		t.Fatal(err)
	}

	// 查詢不消費：連續兩次都應成功
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/secrets/"+createResp.ID, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("第 %d 次查詢狀態碼 = %d, want 200", i+1, w.Code)
		}
	}

	// 不存在的 ID
	req := httptest.NewRequest(http.MethodGet, "/api/v1/secrets/00000000000000000000000000000000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("未知 ID 查詢狀態碼 = %d, want 404", w.Code)
	}

	// 畸形 ID
	req = httptest.NewRequest(http.MethodGet, "/api/v1/secrets/not-a-valid-id", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("畸形 ID 查詢狀態碼 = %d, want 400", w.Code)
	}
}

func TestRedeemSecretEndpoint(t *testing.T) {
	router, store := newTestRouter(t)

	body, encrypted := createBody(t, "1h")
	created := postJSON(router, "/api/v1/secrets", body)
	if created.Code != http.StatusCreated {
		t.Fatalf("建立失敗: %d", created.Code)
	}
	var createResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &createResp); err != nil {
		t.Fatal(err)
	}

	redeemBody, _ := json.Marshal(gin.H{"id": createResp.ID})
	w := postJSON(router, "/api/v1/secrets/redeem", redeemBody)
	if w.Code != http.StatusOK {
		t.Fatalf("兌換狀態碼 = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var redeemResp struct {
		Ciphertext string `json:"ciphertext"`
		IV         string `json:"iv"`
		AuthTag    string `json:"authTag"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &redeemResp); err != nil {
		t.Fatal(err)
	}

	// 返回的三元組必須能在本地解密回原文
	ciphertext, err := envelope.DecodeSegment(redeemResp.Ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	iv, err := envelope.DecodeSegment(redeemResp.IV)
	if err != nil {
		t.Fatal(err)
	}
	authTag, err := envelope.DecodeSegment(redeemResp.AuthTag)
	if err != nil {
		t.Fatal(err)
	}
	plaintext, err := envelope.Decrypt(ciphertext, iv, authTag, encrypted.Key)
	if err != nil {
		t.Fatalf("本地解密失敗: %v", err)
	}
	if string(plaintext) != "meet me at midnight" {
		t.Errorf("解密結果 = %q", plaintext)
	}

	// 一次性：第二次兌換 404，且倉儲已清空
	w = postJSON(router, "/api/v1/secrets/redeem", redeemBody)
	if w.Code != http.StatusNotFound {
		t.Errorf("二次兌換狀態碼 = %d, want 404", w.Code)
	}
	if store.Len() != 0 {
		t.Errorf("兌換後倉儲記錄數 = %d, want 0", store.Len())
	}
}

func TestRedeemExpiredSecretEndpoint(t *testing.T) {
	router, store := newTestRouter(t)

	id, err := secret.NewID()
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	err = store.Insert(context.Background(), &secret.Record{
		ID:         id,
		Ciphertext: "YWJj",
		IV:         envelope.EncodeSegment(make([]byte, 12)),
		AuthTag:    envelope.EncodeSegment(make([]byte, 16)),
		ExpiresAt:  now.Add(-time.Minute),
		CreatedAt:  now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	redeemBody, _ := json.Marshal(gin.H{"id": id})
	w := postJSON(router, "/api/v1/secrets/redeem", redeemBody)
	if w.Code != http.StatusGone {
		t.Fatalf("過期兌換狀態碼 = %d, want 410, body: %s", w.Code, w.Body.String())
	}
	if store.Len() != 0 {
		t.Errorf("過期兌換後殘留未清除")
	}
}

func TestCreateSecretOversizedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Limits.Request.MaxBodySize = 64
	if err := config.Load(cfg); err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	router := Router(secret.NewService(memory.NewSecretStore()))

	body, _ := createBody(t, "1h")
	if len(body) <= 64 {
		t.Fatalf("測試請求體需超過大小上限，實際 %d 字節", len(body))
	}

	w := postJSON(router, "/api/v1/secrets", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超大請求體狀態碼 = %d, want 413", w.Code)
	}
}

func TestRateLimitHeadersAndRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	cfg.Limits.RateLimiting.Enabled = true
	cfg.Limits.RateLimiting.CreatePerMin = 2
	if err := config.Load(cfg); err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	router := Router(secret.NewService(memory.NewSecretStore()))

	body, _ := createBody(t, "1h")
	for i := 0; i < 2; i++ {
		w := postJSON(router, "/api/v1/secrets", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("第 %d 次請求狀態碼 = %d, want 201", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", w.Header().Get("X-RateLimit-Limit"))
		}
	}

	w := postJSON(router, "/api/v1/secrets", body)
	assertErrorCode(t, w, http.StatusTooManyRequests, 4290)
	if w.Header().Get("Retry-After") == "" {
		t.Errorf("429 回應缺少 Retry-After 標頭")
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for key, want := range headers {
		if got := w.Header().Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

package client_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"secret-gateway/internal/client"
	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/server"
	"secret-gateway/internal/secret"
	"secret-gateway/internal/storage/memory"

	"github.com/gin-gonic/gin"
)

// newTestServer 架起完整 HTTP 堆疊（進程內倉儲、速率限制關閉）。
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	err := config.Load(&config.Config{
		App:      config.AppConfig{Name: "secret-gateway", Version: "test"},
		Server:   config.ServerConfig{Host: "localhost", Port: "0", Timeout: 10},
		Database: config.DatabaseConfig{Driver: "memory"},
		Log:      config.LogConfig{RotationTimeHours: 24, MaxAgeDays: 7, MaxSizeMB: 100},
		Limits:   config.LimitsConfig{},
	})
	if err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	ts := httptest.NewServer(server.Router(secret.NewService(memory.NewSecretStore())))
	t.Cleanup(ts.Close)
	return ts
}

func TestClientEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	const message = "wifi password: hunter2"

	created, err := c.CreateSecret(message, "1h")
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	if created.Link == "" {
		t.Fatal("CreateSecret() 未返回連結")
	}
	if remaining := time.Until(created.ExpiresAt); remaining < 59*time.Minute {
		t.Errorf("過期時間過早: %v", created.ExpiresAt)
	}

	// 查詢不消費
	expiresAt, err := c.PeekExpiry(created.Link)
	if err != nil {
		t.Fatalf("PeekExpiry() error = %v", err)
	}
	if !expiresAt.Equal(created.ExpiresAt) {
		t.Errorf("PeekExpiry() = %v, want %v", expiresAt, created.ExpiresAt)
	}

	plaintext, err := c.RedeemSecret(created.Link)
	if err != nil {
		t.Fatalf("RedeemSecret() error = %v", err)
	}
	if plaintext != message {
		t.Errorf("解密結果 = %q, want %q", plaintext, message)
	}

	// 一次性：兌換後連結徹底失效
	if _, err := c.RedeemSecret(created.Link); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("二次 RedeemSecret() error = %v, want ErrNotFound", err)
	}
	if _, err := c.PeekExpiry(created.Link); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("兌換後 PeekExpiry() error = %v, want ErrNotFound", err)
	}
}

func TestClientUsesServerConfiguredLinkOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	err := config.Load(&config.Config{
		App: config.AppConfig{Name: "secret-gateway", Version: "test"},
		Server: config.ServerConfig{
			Host: "localhost", Port: "0", Timeout: 10,
			LinkBaseURL: "https://secrets.example.com",
		},
		Database: config.DatabaseConfig{Driver: "memory"},
		Log:      config.LogConfig{RotationTimeHours: 24, MaxAgeDays: 7, MaxSizeMB: 100},
	})
	if err != nil {
		t.Fatalf("載入測試配置失敗: %v", err)
	}

	ts := httptest.NewServer(server.Router(secret.NewService(memory.NewSecretStore())))
	t.Cleanup(ts.Close)
	c := client.New(ts.URL)

	created, err := c.CreateSecret("rotate the deploy key", "1h")
	if err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}

	// 連結以伺服器配置的公開來源組裝，而非測試伺服器的隨機埠
	wantPrefix := "https://secrets.example.com/s/" + created.ID + "#"
	if !strings.HasPrefix(created.Link, wantPrefix) {
		t.Fatalf("Link = %q, want 前綴 %q", created.Link, wantPrefix)
	}

	// 兌換仍走實際的伺服器位址，連結來源只影響展示
	plaintext, err := c.RedeemSecret(created.Link)
	if err != nil {
		t.Fatalf("RedeemSecret() error = %v", err)
	}
	if plaintext != "rotate the deploy key" {
		t.Errorf("解密結果 = %q", plaintext)
	}
}

func TestClientUnknownLink(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	link := ts.URL + "/s/00000000000000000000000000000000#" + "QUJDREVGR0hJSktMTU5PUFFSU1RVVldYWVphYmNkZWY"

	if _, err := c.RedeemSecret(link); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("RedeemSecret() error = %v, want ErrNotFound", err)
	}
}

func TestClientRejectsUnsupportedExpiry(t *testing.T) {
	ts := newTestServer(t)
	c := client.New(ts.URL)

	if _, err := c.CreateSecret("message", "42h"); err == nil {
		t.Error("不支援的過期枚舉應被伺服器拒絕")
	}
}

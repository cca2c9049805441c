package server

import (
	"crypto/tls"
	"fmt"

	"secret-gateway/internal/platform/config"
)

// LoadTLSConfig 載入 HTTPS 伺服器的 TLS 配置.
// 連結的 fragment 攜帶解密金鑰，生產環境必須走 TLS，
// 否則 id 在線路上可被攔截（金鑰仍安全，但密文會被一次性取走）。
func LoadTLSConfig(cfg config.ServerConfig) (*tls.Config, error) {
	if cfg.CertPath == "" || cfg.KeyPath == "" {
		return nil, fmt.Errorf("HTTPS 需要憑證與私鑰路徑")
	}

	// 憑證由 ListenAndServeTLS 載入，這裡只收斂協議版本
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13, // 只接受 TLS 1.3
	}

	return tlsConfig, nil
}

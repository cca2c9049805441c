package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestMetadata 請求元數據
type RequestMetadata struct {
	IPAddress string
	UserAgent string
}

const (
	requestMetadataKey = "request_metadata"

	// fallbackClientIP 無法取得任何地址信息時的佔位身份
	fallbackClientIP = "127.0.0.1"
)

// RequestMetadataMiddleware 提取請求元數據並存儲到 context
func RequestMetadataMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestMetadataKey, &RequestMetadata{
			IPAddress: GetClientIP(c),
			UserAgent: c.Request.UserAgent(),
		})
		c.Next()
	}
}

// GetClientIP 獲取客戶端 IP，作為速率限制的身份鍵。
// 頭部可被偽造，這只是提高濫用成本的手段，不是安全邊界。
func GetClientIP(c *gin.Context) string {
	// 優先從 X-Forwarded-For 頭部獲取（反向代理）
	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		// X-Forwarded-For 可能包含多個 IP，取第一個
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	// 從 X-Real-IP 頭部獲取
	if realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	// 直接獲取遠程地址
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return fallbackClientIP
}

// GetRequestMetadataFromGin 從 gin.Context 獲取請求元數據
func GetRequestMetadataFromGin(c *gin.Context) *RequestMetadata {
	if metadata, exists := c.Get(requestMetadataKey); exists {
		if meta, ok := metadata.(*RequestMetadata); ok {
			return meta
		}
	}
	return &RequestMetadata{
		IPAddress: GetClientIP(c),
		UserAgent: c.Request.UserAgent(),
	}
}

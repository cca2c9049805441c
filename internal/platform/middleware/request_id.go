package middleware

import (
	"secret-gateway/internal/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestIDMiddleware 為每個請求指定唯一 ID，
// 並寫入請求 context 作為日誌 trace ID，讓同一請求的
// 所有日誌行可以互相關聯。
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 客戶端帶了 Request ID 就沿用，方便跨服務追蹤
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), requestID))

		// 回響應頭，讓客戶端能在回報問題時附上 ID
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

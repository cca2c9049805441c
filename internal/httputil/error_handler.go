package httputil

import (
	"fmt"
	"strings"

	"secret-gateway/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// requestID 讀取 RequestIDMiddleware 放入 context 的請求 ID.
func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// ErrorWithCode 寫出帶錯誤代碼的統一錯誤回應.
// 所有錯誤響應都經過這裡，保證欄位形狀一致.
func ErrorWithCode(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":      message,
		"code":       errorCode,
		"success":    false,
		"request_id": requestID(c),
	})
}

// SafeError 安全的錯誤響應（不洩露內部信息）
func SafeError(c *gin.Context, statusCode int, errorCode int, err error, userMessage string) {
	// 記錄真實錯誤到日誌（用於調試）
	logger.Error(c.Request.Context(), fmt.Sprintf("API Error: %v", err),
		logger.WithDetails(map[string]interface{}{
			"request_id": requestID(c),
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"status":     statusCode,
		}))

	// 根據錯誤類型決定是否顯示詳情
	message := userMessage
	if shouldShowError(err) {
		message = err.Error()
	}

	ErrorWithCode(c, statusCode, errorCode, message)
}

// shouldShowError 判斷是否可以向用戶顯示錯誤詳情
func shouldShowError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	// 不應顯示的錯誤關鍵字（可能洩露敏感信息）
	dangerousKeywords := []string{
		"mongo",
		"database",
		"connection",
		"password",
		"token",
		"credential",
		"internal",
		"stack",
		"panic",
	}

	lowerMsg := strings.ToLower(errMsg)
	for _, keyword := range dangerousKeywords {
		if strings.Contains(lowerMsg, keyword) {
			return false
		}
	}

	return true
}

// InternalServerError 未分類的內部錯誤
func InternalServerError(c *gin.Context, err error) {
	SafeError(c, 500, ErrorCodeProcessingFailed, err, MsgUnexpectedError)
}

// BadRequest 錯誤的請求
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, 400, ErrorCodeInvalidParameter, message)
}

// NotFoundError 資源不存在（或已被兌換，刻意不可區分）
func NotFoundError(c *gin.Context, message string) {
	if message == "" {
		message = MsgSecretNotFound
	}
	ErrorWithCode(c, 404, ErrorCodeSecretNotFound, message)
}

// GoneError 資源已過期（僅用於用戶提示，不是安全邊界）
func GoneError(c *gin.Context, message string) {
	if message == "" {
		message = MsgSecretExpired
	}
	ErrorWithCode(c, 410, ErrorCodeSecretExpired, message)
}

// PayloadTooLarge 請求體超過大小上限
func PayloadTooLarge(c *gin.Context) {
	ErrorWithCode(c, 413, ErrorCodePayloadTooLarge, MsgPayloadTooLarge)
}

// RateLimitExceeded 速率限制超過
func RateLimitExceeded(c *gin.Context) {
	ErrorWithCode(c, 429, ErrorCodeRateLimited, MsgTooManyRequests)
}

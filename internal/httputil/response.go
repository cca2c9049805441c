package httputil

import "github.com/gin-gonic/gin"

// 用戶可見訊息常數.
const (
	MsgSecretCreated   = "Secret stored successfully"
	MsgSecretRedeemed  = "Secret redeemed and destroyed"
	MsgInvalidPayload  = "Invalid request payload"
	MsgSecretNotFound  = "Secret missing"
	MsgSecretExpired   = "Secret expired"
	MsgStorageFailed   = "We could not store your secret. Please try again."
	MsgPayloadTooLarge = "Request payload too large"
	MsgTooManyRequests = "Too many requests. Please try again later."
	MsgUnexpectedError = "Unexpected error"
)

// Success 回傳成功回應的基底，呼叫端可再附加欄位.
func Success(message string) gin.H {
	return gin.H{
		"message": message,
		"success": true,
	}
}

package httputil

// API 錯誤代碼常數.
const (
	// 2000-2999: 參數相關錯誤 (400 Bad Request / 413 Payload Too Large).
	ErrorCodeInvalidParameter = 2001
	ErrorCodePayloadTooLarge  = 2002

	// 4000-4999: 資源相關錯誤 (404 Not Found / 410 Gone).
	ErrorCodeSecretNotFound = 4001
	ErrorCodeSecretExpired  = 4002

	// 4290-4299: 速率限制 (429 Too Many Requests).
	ErrorCodeRateLimited = 4290

	// 5000-5999: 處理相關錯誤 (500 Internal Server Error).
	ErrorCodeProcessingFailed   = 5001
	ErrorCodeStorageUnavailable = 5002
	ErrorCodeStorageExhausted   = 5003
)

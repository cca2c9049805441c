package constants

import "time"

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 256 << 10 // 256KB
	DefaultRequestTimeout     = 30        // 秒
)

// 密文相關常數
const (
	DefaultMaxMessageChars = 5000 // 明文最大字符數
	// 密文上限 = 明文字符上限 × 6，涵蓋多字節字符與編碼膨脹
	CiphertextExpansionFactor = 6

	IVByteLength       = 12 // 96-bit GCM nonce
	AuthTagByteLength  = 16 // 128-bit GCM tag
	KeyByteLength      = 32 // 256-bit AES key
	SecretIDByteLength = 16
	SecretIDHexLength  = 32
)

// MaxCiphertextBytes 解碼後密文的最大字節數
const MaxCiphertextBytes = DefaultMaxMessageChars * CiphertextExpansionFactor

// RedemptionPathPrefix 一次性連結的兌換路徑前綴：{origin}/s/{id}#{key}
const RedemptionPathPrefix = "/s/"

// 過期時間選項（秒）
const (
	Expiry15Minutes = 15 * 60
	Expiry1Hour     = 60 * 60
	Expiry4Hours    = 4 * 60 * 60
	Expiry1Day      = 24 * 60 * 60
	Expiry7Days     = 7 * 24 * 60 * 60
)

// ExpiryChoices 支援的過期時間枚舉
var ExpiryChoices = map[string]time.Duration{
	"15m": Expiry15Minutes * time.Second,
	"1h":  Expiry1Hour * time.Second,
	"4h":  Expiry4Hours * time.Second,
	"1d":  Expiry1Day * time.Second,
	"7d":  Expiry7Days * time.Second,
}

// Rate Limiting 默認值
const (
	DefaultCreateRateLimit      = 30
	DefaultRedeemRateLimit      = 60
	DefaultPeekRateLimit        = 60
	RateLimitCleanupIntervalMin = 10 // 分鐘
)

// 存儲相關常數
const (
	// ID 碰撞時的最大重試次數
	MaxIDGenerationAttempts = 5
)

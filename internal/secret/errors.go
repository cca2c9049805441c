package secret

import "errors"

// 核心錯誤分類。傳輸層據此映射狀態碼，
// 不依賴錯誤字串比對。
var (
	// ErrInvalidInput 客戶端輸入畸形：長度錯誤、超限、非法枚舉。
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound 沒有存活的記錄匹配。刻意與「已被兌換」不可區分，
	// 避免洩露某個連結是否曾經有效。
	ErrNotFound = errors.New("secret not found")

	// ErrExpired 記錄存在但 TTL 已過。僅用於用戶提示文案，
	// 不是安全邊界。
	ErrExpired = errors.New("secret expired")

	// ErrDuplicateID 插入時 ID 已存在（唯一性衝突），由倉儲回報。
	ErrDuplicateID = errors.New("duplicate secret id")

	// ErrStorageUnavailable 底層存儲瞬時故障。create/peek 可由用戶重試；
	// redeem 不可盲目重試（刪除可能已部分落地）。
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageExhausted 連續 ID 碰撞耗盡重試次數，視為致命的請求失敗。
	ErrStorageExhausted = errors.New("storage exhausted: repeated id collisions")
)

// InvalidInputError 帶欄位說明的輸入錯誤，errors.Is 仍匹配 ErrInvalidInput。
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

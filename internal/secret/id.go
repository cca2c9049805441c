package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"

	"secret-gateway/internal/constants"
)

// ID 格式：32 個小寫十六進制字符（16 隨機字節）
var idPattern = regexp.MustCompile(fmt.Sprintf(`^[0-9a-f]{%d}$`, constants.SecretIDHexLength))

// NewID 從密碼學安全隨機源生成密信 ID。
// 碰撞概率可忽略但不為零，Create 仍以唯一性約束兜底。
func NewID() (string, error) {
	buf := make([]byte, constants.SecretIDByteLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate secret id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateID 驗證外部提供的 ID 格式。
// 不符合格式的一律視為畸形輸入拒絕，絕不靜默糾正。
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return &InvalidInputError{Field: "id", Reason: "must be 32 lowercase hex characters"}
	}
	return nil
}

package envelope

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

// 線路上所有二進制欄位使用無填充的 base64url 編碼，
// 可以安全放在 URL fragment 和 JSON 字串中。
var base64urlPattern = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)

// EncodeSegment 將字節編碼為無填充的 base64url 字串。
func EncodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeSegment 解碼 base64url 字串並執行規範性檢查：
// 解碼後重新編碼必須逐字節還原輸入，否則視為畸形輸入拒絕。
// 這會擋掉非規範填充、多餘字符等歧義編碼。
func DecodeSegment(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("empty base64url segment")
	}
	if !base64urlPattern.MatchString(value) {
		return nil, fmt.Errorf("invalid base64url character")
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid base64url segment: %w", err)
	}

	// 規範性檢查
	if EncodeSegment(decoded) != value {
		return nil, fmt.Errorf("non-canonical base64url segment")
	}

	return decoded, nil
}

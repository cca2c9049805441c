package client

import (
	"fmt"
	"net/url"
	"strings"

	"secret-gateway/internal/constants"
	"secret-gateway/internal/secret"
	"secret-gateway/internal/security/envelope"
)

// 一次性連結格式: {origin}/s/{id}#{key}
// fragment 攜帶解密金鑰，瀏覽器與任何合規 HTTP 客戶端
// 都不會把 fragment 放進請求，伺服器因此永遠看不到金鑰。

// ComposeLink 組裝一次性連結。
func ComposeLink(baseURL, id string, key []byte) string {
	return strings.TrimSuffix(baseURL, "/") + constants.RedemptionPathPrefix + id + "#" + envelope.EncodeSegment(key)
}

// ParseLink 拆解一次性連結，取出密信 ID 與解密金鑰。
func ParseLink(link string) (id string, key []byte, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", nil, fmt.Errorf("invalid link: %w", err)
	}

	idx := strings.LastIndex(u.Path, constants.RedemptionPathPrefix)
	if idx < 0 {
		return "", nil, fmt.Errorf("invalid link: missing redemption path")
	}
	id = u.Path[idx+len(constants.RedemptionPathPrefix):]
	if err := secret.ValidateID(id); err != nil {
		return "", nil, fmt.Errorf("invalid link: %w", err)
	}

	if u.Fragment == "" {
		return "", nil, fmt.Errorf("invalid link: missing key fragment")
	}
	key, err = envelope.DecodeSegment(u.Fragment)
	if err != nil {
		return "", nil, fmt.Errorf("invalid link: bad key fragment: %w", err)
	}

	return id, key, nil
}

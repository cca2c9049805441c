// Package client 提供 secret-gateway API 的 HTTP 客戶端。
// 加密與解密都在本地完成，線路上只有密文三元組與 ID。
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"secret-gateway/internal/security/envelope"
)

// 伺服器端結果的哨兵錯誤，供 CLI 區分用戶文案。
var (
	ErrNotFound    = fmt.Errorf("secret not found or already redeemed")
	ErrExpired     = fmt.Errorf("secret link expired")
	ErrRateLimited = fmt.Errorf("rate limited, retry later")
)

// Client secret-gateway API 客戶端。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 創建 API 客戶端。
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateResult 建立成功的結果。Link 已含金鑰 fragment。
type CreateResult struct {
	ID        string
	ExpiresAt time.Time
	Link      string
}

// CreateSecret 在本地加密明文並上傳密文三元組。
// 金鑰只進入返回的連結，從不出現在請求中。
func (c *Client) CreateSecret(message, expiry string) (*CreateResult, error) {
	result, err := envelope.Encrypt([]byte(message))
	if err != nil {
		return nil, fmt.Errorf("local encryption failed: %w", err)
	}

	reqBody, err := json.Marshal(map[string]string{
		"ciphertext": envelope.EncodeSegment(result.Ciphertext),
		"iv":         envelope.EncodeSegment(result.IV),
		"authTag":    envelope.EncodeSegment(result.AuthTag),
		"expiry":     expiry,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/secrets", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.serverError(resp)
	}

	var out struct {
		ID        string `json:"id"`
		ExpiresAt string `json:"expiresAt"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, out.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid expiresAt in response: %w", err)
	}

	// 伺服器配置了公開站點來源時以它組連結，否則退回請求的 baseURL。
	// 金鑰只在本地拼進 fragment，兩種情況都不經過線路。
	link := ComposeLink(c.baseURL, out.ID, result.Key)
	if out.URL != "" {
		link = out.URL + "#" + envelope.EncodeSegment(result.Key)
	}

	return &CreateResult{
		ID:        out.ID,
		ExpiresAt: expiresAt,
		Link:      link,
	}, nil
}

// PeekExpiry 查詢連結剩餘有效期，不消費密信。
func (c *Client) PeekExpiry(link string) (time.Time, error) {
	id, _, err := ParseLink(link)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := c.httpClient.Get(c.baseURL + "/api/v1/secrets/" + id)
	if err != nil {
		return time.Time{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, c.serverError(resp)
	}

	var out struct {
		ExpiresAt string `json:"expiresAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return time.Time{}, fmt.Errorf("invalid response: %w", err)
	}

	return time.Parse(time.RFC3339, out.ExpiresAt)
}

// RedeemSecret 兌換連結並在本地解密。
// 成功即銷毀：同一連結的第二次兌換必然失敗。
func (c *Client) RedeemSecret(link string) (string, error) {
	id, key, err := ParseLink(link)
	if err != nil {
		return "", err
	}

	reqBody, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/v1/secrets/redeem", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.serverError(resp)
	}

	var out struct {
		Ciphertext string `json:"ciphertext"`
		IV         string `json:"iv"`
		AuthTag    string `json:"authTag"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}

	ciphertext, err := envelope.DecodeSegment(out.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext in response: %w", err)
	}
	iv, err := envelope.DecodeSegment(out.IV)
	if err != nil {
		return "", fmt.Errorf("invalid iv in response: %w", err)
	}
	authTag, err := envelope.DecodeSegment(out.AuthTag)
	if err != nil {
		return "", fmt.Errorf("invalid authTag in response: %w", err)
	}

	plaintext, err := envelope.Decrypt(ciphertext, iv, authTag, key)
	if err != nil {
		return "", fmt.Errorf("local decryption failed: %w", err)
	}

	return string(plaintext), nil
}

// serverError 將 HTTP 狀態映射為哨兵錯誤或伺服器文案。
func (c *Client) serverError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrExpired
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	var errResp struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Error != "" {
		return fmt.Errorf("server error: %s", errResp.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

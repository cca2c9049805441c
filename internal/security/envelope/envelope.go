// Package envelope 提供一次性密信的信封加密。
// 加密金鑰只存在於發送端，經由連結的 fragment 傳遞給接收端，
// 伺服器自始至終看不到金鑰，也就無法解開任何密文。
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"secret-gateway/internal/constants"
)

// ErrAuthentication 表示認證標籤驗證失敗：
// 密文被竄改、金鑰錯誤或 IV 錯誤。解密只有「成功還原明文」
// 和「硬失敗」兩種結果，不會輸出部分或錯亂的明文。
var ErrAuthentication = errors.New("envelope: authentication failed")

// EncryptionResult 單次加密的全部產物。
// Key 不會傳給伺服器，只由呼叫方放進連結的 fragment。
type EncryptionResult struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
	Key        []byte
}

// Encrypt 以 AES-256-GCM 加密明文。
// 每次呼叫生成全新的 256-bit 金鑰與 96-bit nonce。
func Encrypt(plaintext []byte) (*EncryptionResult, error) {
	key := make([]byte, constants.KeyByteLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	iv := make([]byte, constants.IVByteLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	// Seal 的輸出是 密文 ‖ 認證標籤，拆開分別回傳
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - constants.AuthTagByteLength

	return &EncryptionResult{
		Ciphertext: sealed[:tagStart],
		IV:         iv,
		AuthTag:    sealed[tagStart:],
		Key:        key,
	}, nil
}

// Decrypt 以 AES-256-GCM 解密。
// 將 密文 ‖ 認證標籤 重組後交給 GCM 驗證並解開；
// 標籤驗證失敗回傳 ErrAuthentication。
func Decrypt(ciphertext, iv, authTag, key []byte) ([]byte, error) {
	if len(key) != constants.KeyByteLength {
		return nil, fmt.Errorf("envelope: key must be %d bytes", constants.KeyByteLength)
	}
	if len(iv) != constants.IVByteLength {
		return nil, fmt.Errorf("envelope: iv must be %d bytes", constants.IVByteLength)
	}
	if len(authTag) != constants.AuthTagByteLength {
		return nil, fmt.Errorf("envelope: auth tag must be %d bytes", constants.AuthTagByteLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	return plaintext, nil
}

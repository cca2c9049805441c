package envelope

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"secret-gateway/internal/constants"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		plaintext string
	}{
		{"Simple text", "hello world"},
		{"Unicode", "你好世界！🔐"},
		{"Single byte", "x"},
		{"Long text", strings.Repeat("This is a long secret. ", 200)},
		{"Special chars", "!@#$%^&*()_+-=[]{}|;':\",./<>?"},
		{"Newlines", "line 1\nline 2\nline 3"},
		{"Max length", strings.Repeat("a", constants.DefaultMaxMessageChars)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Encrypt([]byte(tc.plaintext))
			if err != nil {
				t.Fatalf("Encryption failed: %v", err)
			}

			// 驗證固定長度欄位
			if len(result.Key) != constants.KeyByteLength {
				t.Errorf("Key length = %d, want %d", len(result.Key), constants.KeyByteLength)
			}
			if len(result.IV) != constants.IVByteLength {
				t.Errorf("IV length = %d, want %d", len(result.IV), constants.IVByteLength)
			}
			if len(result.AuthTag) != constants.AuthTagByteLength {
				t.Errorf("AuthTag length = %d, want %d", len(result.AuthTag), constants.AuthTagByteLength)
			}

			// 密文長度等於明文長度（GCM 是流模式，標籤另計）
			if len(result.Ciphertext) != len(tc.plaintext) {
				t.Errorf("Ciphertext length = %d, want %d", len(result.Ciphertext), len(tc.plaintext))
			}

			decrypted, err := Decrypt(result.Ciphertext, result.IV, result.AuthTag, result.Key)
			if err != nil {
				t.Fatalf("Decryption failed: %v", err)
			}

			if string(decrypted) != tc.plaintext {
				t.Errorf("Decryption mismatch.\nWant: %s\nGot: %s", tc.plaintext, decrypted)
			}
		})
	}
}

func TestEncryptFreshKeyAndIV(t *testing.T) {
	// 每次加密必須生成全新的金鑰與 nonce
	first, err := Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encrypt([]byte("same plaintext"))
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(first.Key, second.Key) {
		t.Error("Two encryptions produced the same key")
	}
	if bytes.Equal(first.IV, second.IV) {
		t.Error("Two encryptions produced the same IV")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Error("Two encryptions produced the same ciphertext")
	}
}

func TestDecryptTamperDetection(t *testing.T) {
	result, err := Encrypt([]byte("the secret payload"))
	if err != nil {
		t.Fatal(err)
	}

	flipBit := func(data []byte, pos int) []byte {
		tampered := make([]byte, len(data))
		copy(tampered, data)
		tampered[pos] ^= 0x01
		return tampered
	}

	testCases := []struct {
		name string
		run  func() ([]byte, error)
	}{
		{"Tampered ciphertext", func() ([]byte, error) {
			return Decrypt(flipBit(result.Ciphertext, 0), result.IV, result.AuthTag, result.Key)
		}},
		{"Tampered ciphertext last byte", func() ([]byte, error) {
			return Decrypt(flipBit(result.Ciphertext, len(result.Ciphertext)-1), result.IV, result.AuthTag, result.Key)
		}},
		{"Tampered IV", func() ([]byte, error) {
			return Decrypt(result.Ciphertext, flipBit(result.IV, 3), result.AuthTag, result.Key)
		}},
		{"Tampered auth tag", func() ([]byte, error) {
			return Decrypt(result.Ciphertext, result.IV, flipBit(result.AuthTag, 7), result.Key)
		}},
		{"Wrong key", func() ([]byte, error) {
			return Decrypt(result.Ciphertext, result.IV, result.AuthTag, flipBit(result.Key, 15))
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plaintext, err := tc.run()
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("Expected ErrAuthentication, got: %v", err)
			}
			if plaintext != nil {
				t.Errorf("Tampered decryption must not return plaintext, got %d bytes", len(plaintext))
			}
		})
	}
}

func TestDecryptInvalidLengths(t *testing.T) {
	result, err := Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name string
		run  func() ([]byte, error)
	}{
		{"Short key", func() ([]byte, error) {
			return Decrypt(result.Ciphertext, result.IV, result.AuthTag, result.Key[:16])
		}},
		{"Short IV", func() ([]byte, error) {
			return Decrypt(result.Ciphertext, result.IV[:8], result.AuthTag, result.Key)
		}},
		{"Short tag", func() ([]byte, error) {
			return Decrypt(result.Ciphertext, result.IV, result.AuthTag[:8], result.Key)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.run(); err == nil {
				t.Error("Expected error for invalid input length")
			}
		})
	}
}

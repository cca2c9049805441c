package secret

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secret-gateway/internal/constants"
	"secret-gateway/internal/platform/logger"
	"secret-gateway/internal/security/envelope"
)

// Service 密信存儲服務。
// 唯一允許建立、查看、銷毀性消費密信記錄的組件。
type Service struct {
	repo               Repository
	maxCiphertextBytes int
	newID              func() (string, error)
}

// NewService 創建密信存儲服務。
func NewService(repo Repository) *Service {
	return &Service{
		repo:               repo,
		maxCiphertextBytes: constants.MaxCiphertextBytes,
		newID:              NewID,
	}
}

// SetMaxMessageChars 依配置調整明文字符上限，
// 密文上限隨之按固定膨脹係數換算。
func (s *Service) SetMaxMessageChars(chars int) {
	if chars > 0 {
		s.maxCiphertextBytes = chars * constants.CiphertextExpansionFactor
	}
}

// CreateInput 建立請求的線路欄位，均為 base64url 字串。
type CreateInput struct {
	Ciphertext string
	IV         string
	AuthTag    string
	Expiry     string
}

// CreateResult 建立成功的結果。
type CreateResult struct {
	ID        string
	ExpiresAt time.Time
}

// RedeemResult 兌換成功返回的加密三元組。
type RedeemResult struct {
	Ciphertext string
	IV         string
	AuthTag    string
	ExpiresAt  time.Time
}

// validateCreateInput 驗證線路輸入：規範 base64url、解碼後長度、過期枚舉。
func (s *Service) validateCreateInput(in CreateInput) (time.Duration, error) {
	ttl, ok := ExpiryDuration(in.Expiry)
	if !ok {
		return 0, &InvalidInputError{Field: "expiry", Reason: "unsupported expiry choice"}
	}

	ciphertext, err := envelope.DecodeSegment(in.Ciphertext)
	if err != nil {
		return 0, &InvalidInputError{Field: "ciphertext", Reason: "not canonical base64url"}
	}
	if len(ciphertext) == 0 {
		return 0, &InvalidInputError{Field: "ciphertext", Reason: "empty payload"}
	}
	if len(ciphertext) > s.maxCiphertextBytes {
		return 0, &InvalidInputError{Field: "ciphertext", Reason: "exceeds maximum payload size"}
	}

	iv, err := envelope.DecodeSegment(in.IV)
	if err != nil {
		return 0, &InvalidInputError{Field: "iv", Reason: "not canonical base64url"}
	}
	if len(iv) != constants.IVByteLength {
		return 0, &InvalidInputError{Field: "iv", Reason: fmt.Sprintf("must decode to %d bytes", constants.IVByteLength)}
	}

	authTag, err := envelope.DecodeSegment(in.AuthTag)
	if err != nil {
		return 0, &InvalidInputError{Field: "authTag", Reason: "not canonical base64url"}
	}
	if len(authTag) != constants.AuthTagByteLength {
		return 0, &InvalidInputError{Field: "authTag", Reason: fmt.Sprintf("must decode to %d bytes", constants.AuthTagByteLength)}
	}

	return ttl, nil
}

// Create 驗證並持久化新密信。
// ID 由伺服器生成；唯一性衝突時重新生成並重試，
// 超過 MaxIDGenerationAttempts 次仍碰撞回傳 ErrStorageExhausted。
// 其他插入失敗一律以 ErrStorageUnavailable 回報，不重試。
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	ttl, err := s.validateCreateInput(in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	for attempt := 1; attempt <= constants.MaxIDGenerationAttempts; attempt++ {
		// 隨機源故障不是存儲故障，原樣上報為內部錯誤
		id, err := s.newID()
		if err != nil {
			return nil, err
		}

		record := &Record{
			ID:         id,
			Ciphertext: in.Ciphertext,
			IV:         in.IV,
			AuthTag:    in.AuthTag,
			ExpiresAt:  expiresAt,
			CreatedAt:  now,
		}

		err = s.repo.Insert(ctx, record)
		if err == nil {
			return &CreateResult{ID: id, ExpiresAt: expiresAt}, nil
		}
		if errors.Is(err, ErrDuplicateID) {
			logger.Warningf(ctx, "密信 ID 碰撞，重新生成（第 %d 次嘗試）", attempt)
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	logger.Errorf(ctx, "連續 %d 次 ID 碰撞，放棄建立密信", constants.MaxIDGenerationAttempts)
	return nil, ErrStorageExhausted
}

// PeekExpiry 非破壞性地返回存活記錄的過期時間。
// 絕不消費記錄、絕不返回密文；僅供接收端顯示倒數計時。
func (s *Service) PeekExpiry(ctx context.Context, id string) (time.Time, error) {
	if err := ValidateID(id); err != nil {
		return time.Time{}, err
	}

	record, err := s.repo.FindLive(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return record.ExpiresAt, nil
}

// Redeem 原子性地定位、返回並刪除未過期的記錄。
// 任意多個併發 Redeem(id) 恰有一個成功，其餘得到 ErrNotFound。
// 存活記錄未命中時，順手清除同 ID 的已過期記錄並回報 ErrExpired，
// 讓客戶端能區分「連結已過期」與「連結無效」。
func (s *Service) Redeem(ctx context.Context, id string) (*RedeemResult, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	record, err := s.repo.TakeLive(ctx, id, now)
	if err == nil {
		logger.Info(ctx, "密信已兌換並銷毀", logger.WithSecretID(id), logger.WithAction("redeem"))
		return &RedeemResult{
			Ciphertext: record.Ciphertext,
			IV:         record.IV,
			AuthTag:    record.AuthTag,
			ExpiresAt:  record.ExpiresAt,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	// 順手清理：同 ID 的過期殘留行
	_, err = s.repo.TakeExpired(ctx, id, now)
	if err == nil {
		logger.Info(ctx, "清除已過期的密信", logger.WithSecretID(id), logger.WithAction("purge"))
		return nil, ErrExpired
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return nil, ErrNotFound
}

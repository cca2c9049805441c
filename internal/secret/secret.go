// Package secret 擁有一次性密信記錄的完整生命週期：
// 建立（含 ID 碰撞重試）、非破壞性查詢過期時間、以及
// 「最多兌換一次且過期後永不返回」的原子性兌換。
package secret

import (
	"context"
	"time"

	"secret-gateway/internal/constants"
)

// Record 持久化的密信記錄。
// ciphertext/iv/auth_tag 以 base64url 文本原樣存儲，
// 伺服器從不解析也無法解密其內容。
type Record struct {
	ID         string    `bson:"_id" json:"id"`
	Ciphertext string    `bson:"ciphertext" json:"ciphertext"`
	IV         string    `bson:"iv" json:"iv"`
	AuthTag    string    `bson:"auth_tag" json:"auth_tag"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Repository 密信倉儲接口。
// TakeLive 與 TakeExpired 必須是對同一 ID 併發呼叫下的
// 單一不可分割操作：條件匹配、刪除、返回被刪行合為一步。
type Repository interface {
	// Insert 插入新記錄；ID 已存在時回傳 ErrDuplicateID。
	Insert(ctx context.Context, record *Record) error

	// FindLive 非破壞性查詢未過期的記錄；不存在或已過期回傳 ErrNotFound。
	FindLive(ctx context.Context, id string, now time.Time) (*Record, error)

	// TakeLive 原子性地刪除並返回未過期的記錄；
	// 無匹配回傳 ErrNotFound。併發呼叫下至多一個成功。
	TakeLive(ctx context.Context, id string, now time.Time) (*Record, error)

	// TakeExpired 原子性地刪除並返回已過期的記錄（順手清理）；
	// 無匹配回傳 ErrNotFound。
	TakeExpired(ctx context.Context, id string, now time.Time) (*Record, error)
}

// ExpiryDuration 將過期枚舉轉為時長；未知枚舉回傳 false。
func ExpiryDuration(choice string) (time.Duration, bool) {
	d, ok := constants.ExpiryChoices[choice]
	return d, ok
}

// Package memory 提供進程內的密信倉儲實作。
// 用於開發模式與測試；重啟即全部丟失，不做持久化。
package memory

import (
	"context"
	"sync"
	"time"

	"secret-gateway/internal/secret"
)

// SecretStore 互斥鎖保護的進程內密信倉儲。
// 所有條件式取出都在持鎖狀態下完成匹配、刪除、返回，
// 對同一 ID 的併發兌換至多一個成功。
type SecretStore struct {
	mu      sync.Mutex
	records map[string]*secret.Record
}

// NewSecretStore 創建進程內密信倉儲。
func NewSecretStore() *SecretStore {
	return &SecretStore{
		records: make(map[string]*secret.Record),
	}
}

// Insert 插入新記錄；ID 已存在時回傳 ErrDuplicateID。
func (s *SecretStore) Insert(_ context.Context, record *secret.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return secret.ErrDuplicateID
	}

	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// FindLive 非破壞性查詢未過期的記錄。
func (s *SecretStore) FindLive(_ context.Context, id string, now time.Time) (*secret.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || !record.ExpiresAt.After(now) {
		return nil, secret.ErrNotFound
	}

	clone := *record
	return &clone, nil
}

// TakeLive 原子性地刪除並返回未過期的記錄。
func (s *SecretStore) TakeLive(_ context.Context, id string, now time.Time) (*secret.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || !record.ExpiresAt.After(now) {
		return nil, secret.ErrNotFound
	}

	delete(s.records, id)
	return record, nil
}

// TakeExpired 原子性地刪除並返回已過期的記錄。
func (s *SecretStore) TakeExpired(_ context.Context, id string, now time.Time) (*secret.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.ExpiresAt.After(now) {
		return nil, secret.ErrNotFound
	}

	delete(s.records, id)
	return record, nil
}

// Len 當前記錄數（測試用）。
func (s *SecretStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

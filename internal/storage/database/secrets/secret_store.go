// Package secrets 提供密信倉儲的 MongoDB 實作。
package secrets

import (
	"context"
	"errors"
	"time"

	"secret-gateway/internal/secret"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// SecretStore 密信倉儲的 MongoDB 實作。
// 兌換依賴 findOneAndDelete 的單文檔原子性：
// 存在性檢查、過期檢查、刪除、返回合為一次不可分割的操作。
type SecretStore struct {
	collection *mongo.Collection
}

// NewSecretStore 創建密信倉儲。
func NewSecretStore(db *mongo.Database) *SecretStore {
	return &SecretStore{
		collection: db.Collection("secrets"),
	}
}

// Insert 插入新記錄。_id 即密信 ID，由集合主鍵保證唯一性；
// 重複鍵錯誤轉譯為 ErrDuplicateID 供上層重試。
func (s *SecretStore) Insert(ctx context.Context, record *secret.Record) error {
	_, err := s.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return secret.ErrDuplicateID
		}
		return err
	}
	return nil
}

// FindLive 非破壞性查詢未過期的記錄。
func (s *SecretStore) FindLive(ctx context.Context, id string, now time.Time) (*secret.Record, error) {
	filter := bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": now},
	}

	var record secret.Record
	err := s.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, secret.ErrNotFound
		}
		return nil, err
	}

	return &record, nil
}

// TakeLive 原子性地刪除並返回未過期的記錄。
// 多個併發呼叫中 findOneAndDelete 保證恰有一個取得文檔。
func (s *SecretStore) TakeLive(ctx context.Context, id string, now time.Time) (*secret.Record, error) {
	filter := bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": now},
	}

	var record secret.Record
	err := s.collection.FindOneAndDelete(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, secret.ErrNotFound
		}
		return nil, err
	}

	return &record, nil
}

// TakeExpired 原子性地刪除並返回已過期的記錄。
func (s *SecretStore) TakeExpired(ctx context.Context, id string, now time.Time) (*secret.Record, error) {
	filter := bson.M{
		"_id":        id,
		"expires_at": bson.M{"$lte": now},
	}

	var record secret.Record
	err := s.collection.FindOneAndDelete(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, secret.ErrNotFound
		}
		return nil, err
	}

	return &record, nil
}

package secrets

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateIndexes 創建密信集合索引。
//
// expires_at 上的 TTL 索引讓 MongoDB 在背景清除過期行，
// 純屬效率優化：正確性由查詢條件的過期謂詞保證，
// 過期但尚未被清除的行對 redeem 和 peek 都是不可見的。
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("secrets")

	ttlIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "expires_at", Value: 1},
		},
		Options: options.Index().
			SetName("expires_at_ttl_idx").
			SetExpireAfterSeconds(0),
	}

	_, err := collection.Indexes().CreateOne(ctx, ttlIndex)
	return err
}

package database

import (
	"context"

	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/logger"
	"secret-gateway/internal/secret"
	"secret-gateway/internal/storage/database/secrets"
	"secret-gateway/internal/storage/memory"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories 倉儲集合.
type Repositories struct {
	Secret secret.Repository
}

// NewRepositories 創建倉儲集合.
// driver 為 memory 時使用進程內倉儲（開發模式，重啟即丟失）；
// 其餘情況使用 MongoDB。
func NewRepositories(cfg *config.Config) *Repositories {
	if cfg != nil && cfg.Database.Driver == "memory" {
		logger.LogWarnf("使用進程內倉儲（開發模式），重啟後所有密信將丟失")
		return &Repositories{
			Secret: memory.NewSecretStore(),
		}
	}

	// 從 driver 包獲取 MongoDB 連接
	db := mongoDB
	if db == nil {
		return nil
	}

	// 創建索引（TTL 背景清理），失敗不中斷服務啟動
	ctx := context.Background()
	if err := secrets.CreateIndexes(ctx, db); err != nil {
		logger.LogWarnf("創建密信集合索引失敗: %v", err)
	}

	return &Repositories{
		Secret: secrets.NewSecretStore(db),
	}
}

// 全局變數，用於存儲 MongoDB 連接
var mongoDB *mongo.Database

// SetMongoDB 設置 MongoDB 連接.
func SetMongoDB(db *mongo.Database) {
	mongoDB = db
}

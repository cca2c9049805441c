// Package driver 管理外部存儲的連接生命週期。
package driver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/logger"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
)

// ConnectMongo 依載入的配置建立 MongoDB 連接並驗證可達性。
func ConnectMongo() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("配置未載入")
	}

	mongoCfg := cfg.Database.Mongo

	opts := options.Client().
		ApplyURI(mongoCfg.URL).
		SetMaxPoolSize(mongoCfg.MaxPoolSize).
		SetMinPoolSize(mongoCfg.MinPoolSize).
		SetMaxConnIdleTime(time.Duration(mongoCfg.MaxConnIdleTime) * time.Second).
		SetServerSelectionTimeout(time.Duration(mongoCfg.ServerSelectionTimeout) * time.Second)

	// 認證優先取環境變數，配置檔的值可覆蓋（本地開發用）
	username := os.Getenv("MONGO_USERNAME")
	password := os.Getenv("MONGO_PASSWORD")
	if mongoCfg.Username != "" {
		username = mongoCfg.Username
	}
	if mongoCfg.Password != "" {
		password = mongoCfg.Password
	}
	if username != "" && password != "" {
		opts.SetAuth(options.Credential{
			Username: username,
			Password: password,
		})
	} else {
		logger.LogWarnf("MongoDB 未設置認證（僅限開發環境）")
	}

	if mongoCfg.TLSEnabled {
		tlsConfig, err := mongoTLSConfig(mongoCfg)
		if err != nil {
			return fmt.Errorf("載入 MongoDB TLS 配置失敗: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("連接 MongoDB 失敗: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(mongoCfg.ConnectTimeout)*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB ping 失敗: %w", err)
	}

	mongoClient = client
	mongoDB = client.Database(mongoCfg.Database)

	logger.LogInfof("MongoDB 連接成功: %s", mongoCfg.Database)
	return nil
}

// GetMongoDatabase 獲取 MongoDB 數據庫實例.
func GetMongoDatabase() *mongo.Database {
	return mongoDB
}

// IsConnected 檢查是否已連接.
func IsConnected() bool {
	return mongoClient != nil
}

// CloseMongo 關閉 MongoDB 連接.
func CloseMongo() error {
	if mongoClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return mongoClient.Disconnect(ctx)
}

// mongoTLSConfig 組裝 MongoDB 連接的 TLS 配置。
func mongoTLSConfig(cfg config.MongoConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.TLSInsecureSkipVerify {
		// 僅限開發環境
		tlsConfig.InsecureSkipVerify = true
		logger.LogWarnf("MongoDB TLS 證書驗證已跳過（僅限開發環境）")
		return tlsConfig, nil
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("讀取 CA 證書失敗: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("解析 CA 證書失敗")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		clientCert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("載入客戶端證書失敗: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	return tlsConfig, nil
}

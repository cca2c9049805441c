package main

import (
	"context"
	"fmt"
	"os"

	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/driver"
	"secret-gateway/internal/platform/logger"
	"secret-gateway/internal/platform/server"
	"secret-gateway/internal/storage/database"
)

func main() {
	if err := mainNoExit(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// mainNoExit 分離主要邏輯以避免 exitAfterDefer 問題，確保 defer 函數正常執行.
func mainNoExit() error {
	// 初始化日誌.
	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	ctx := context.Background()

	// 載入配置.
	if err := config.Load(); err != nil {
		return err
	}
	cfg := config.Get()
	logger.Infof(ctx, "設定載入成功，環境: %s", config.GetEnv())

	// 連接資料庫（memory 驅動無需外部連線）.
	if cfg.Database.Driver != "memory" {
		if err := driver.ConnectMongo(); err != nil {
			return err
		}
		defer func() {
			if err := driver.CloseMongo(); err != nil {
				logger.Errorf(ctx, "關閉 MongoDB 連接失敗: %v", err)
			}
		}()

		// 設置 MongoDB 連接到 database 包
		database.SetMongoDB(driver.GetMongoDatabase())
	}

	// 初始化 Repository.
	repos := database.NewRepositories(cfg)
	if repos == nil {
		return fmt.Errorf("repository initialization failed")
	}

	// 啟動 HTTP 服務器，阻塞至收到關閉信號.
	return server.Start(repos)
}

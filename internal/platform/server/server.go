package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/logger"
	"secret-gateway/internal/secret"
	"secret-gateway/internal/storage/database"
)

// Start 啟動 HTTP 伺服器並阻塞直到收到關閉信號.
// 呼叫前需完成日誌、配置與資料庫初始化.
func Start(repos *database.Repositories) error {
	cfg := config.Get()

	service := secret.NewService(repos.Secret)
	if cfg.Limits.Secret.MaxMessageChars > 0 {
		service.SetMaxMessageChars(cfg.Limits.Secret.MaxMessageChars)
	}

	// setting router
	router := Router(service)

	// create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.Server.UseHTTPS {
		tlsConfig, err := LoadTLSConfig(cfg.Server)
		if err != nil {
			logger.LogErrorf("載入 TLS 配置失敗: %v", err)
			return err
		}
		server.TLSConfig = tlsConfig
	}

	// start server
	go func() {
		logger.LogInfof("伺服器正在監聽埠口: %s", cfg.Server.Port)

		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertPath, cfg.Server.KeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.LogErrorf("伺服器啟動失敗: %v", err)
			os.Exit(1)
		}
	}()

	// 等待關閉信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogInfof("收到關閉信號，正在優雅關閉伺服器...")

	// 優雅關閉
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.LogErrorf("伺服器關閉失敗: %v", err)
		return err
	}

	logger.LogInfof("伺服器已優雅關閉")
	return nil
}

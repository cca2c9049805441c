package server

import (
	"net/http"
	"time"

	"secret-gateway/internal/constants"
	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/health"
	"secret-gateway/internal/platform/logger"
	"secret-gateway/internal/platform/middleware"
	"secret-gateway/internal/secret"

	"github.com/gin-gonic/gin"
)

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止點擊劫持
		c.Header("X-Frame-Options", "DENY")

		// 防止 MIME 類型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// 內容安全策略
		c.Header("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none';")

		// 推薦政策：fragment 帶金鑰，referrer 絕不外洩
		c.Header("Referrer-Policy", "no-referrer")

		// 密信響應不得被任何中間層緩存
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}

// corsMiddleware 嚴格來源白名單的 CORS
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400") // 預檢請求緩存 24 小時

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// accessLogMiddleware 以結構化格式記錄每個請求
func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		meta := middleware.GetRequestMetadataFromGin(c)
		logger.Info(c.Request.Context(), "HTTP 請求完成",
			logger.WithHTTPRequest(&logger.HTTPRequest{
				RequestMethod: c.Request.Method,
				RequestURL:    c.Request.URL.Path,
				Status:        c.Writer.Status(),
				ResponseSize:  int64(c.Writer.Size()),
				UserAgent:     meta.UserAgent,
				RemoteIP:      meta.IPAddress,
				Latency:       time.Since(start).String(),
				Protocol:      c.Request.Proto,
			}),
			logger.WithLabels(map[string]string{"component": "http"}))
	}
}

// bodySizeLimitMiddleware 限制請求體大小（密文上限已知，超大請求直接拒絕）
func bodySizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// Router 設定路由
func Router(service *secret.Service) *gin.Engine {
	cfg := config.Get()

	if cfg != nil && !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// 添加請求 ID 中間件（最優先）
	r.Use(middleware.RequestIDMiddleware())

	// 添加安全標頭中間件
	r.Use(securityHeadersMiddleware())

	// 添加 CORS 白名單中間件
	var allowedOrigins []string
	if cfg != nil {
		allowedOrigins = cfg.Server.AllowedOrigins
	}
	r.Use(corsMiddleware(allowedOrigins))

	// 添加請求元數據中間件（提取 IP、User-Agent）
	r.Use(middleware.RequestMetadataMiddleware())

	// 結構化訪問日誌（依賴元數據中間件先行）
	r.Use(accessLogMiddleware())

	// 添加請求大小限制
	maxBody := int64(constants.DefaultMaxRequestBodySize)
	if cfg != nil && cfg.Limits.Request.MaxBodySize > 0 {
		maxBody = cfg.Limits.Request.MaxBodySize
	}
	r.Use(bodySizeLimitMiddleware(maxBody))

	// 為各端點創建獨立的速率限制器：
	// 建立端點限制濫用性寫入，兌換/查詢端點遏制 ID 暴力猜測
	createLimit := constants.DefaultCreateRateLimit
	redeemLimit := constants.DefaultRedeemRateLimit
	peekLimit := constants.DefaultPeekRateLimit
	cleanupInterval := constants.RateLimitCleanupIntervalMin * time.Minute
	rateLimitingEnabled := true
	if cfg != nil {
		rateLimitingEnabled = cfg.Limits.RateLimiting.Enabled
		if cfg.Limits.RateLimiting.CreatePerMin > 0 {
			createLimit = cfg.Limits.RateLimiting.CreatePerMin
		}
		if cfg.Limits.RateLimiting.RedeemPerMin > 0 {
			redeemLimit = cfg.Limits.RateLimiting.RedeemPerMin
		}
		if cfg.Limits.RateLimiting.PeekPerMin > 0 {
			peekLimit = cfg.Limits.RateLimiting.PeekPerMin
		}
		if cfg.Limits.RateLimiting.CleanupInterval > 0 {
			cleanupInterval = time.Duration(cfg.Limits.RateLimiting.CleanupInterval) * time.Minute
		}
	}

	noLimit := func(c *gin.Context) { c.Next() }
	createLimiter := gin.HandlerFunc(noLimit)
	redeemLimiter := gin.HandlerFunc(noLimit)
	peekLimiter := gin.HandlerFunc(noLimit)
	if rateLimitingEnabled {
		createLimiter = middleware.NewRateLimiter(createLimit, time.Minute, cleanupInterval).Middleware()
		redeemLimiter = middleware.NewRateLimiter(redeemLimit, time.Minute, cleanupInterval).Middleware()
		peekLimiter = middleware.NewRateLimiter(peekLimit, time.Minute, cleanupInterval).Middleware()
	}

	// 創建處理器
	healthHandler := health.NewHealthHandler()
	secretHandler := NewSecretHandler(service)

	// health check
	r.GET("/health", healthHandler.HealthCheck)

	// 密信 API 路由
	r.POST("/api/v1/secrets", createLimiter, secretHandler.CreateSecret)
	r.GET("/api/v1/secrets/:id", peekLimiter, secretHandler.PeekSecret)
	r.POST("/api/v1/secrets/redeem", redeemLimiter, secretHandler.RedeemSecret)

	return r
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"secret-gateway/internal/constants"
	"secret-gateway/internal/httputil"
	"secret-gateway/internal/platform/config"
	"secret-gateway/internal/platform/logger"
	"secret-gateway/internal/platform/middleware"
	"secret-gateway/internal/secret"

	"github.com/gin-gonic/gin"
)

// SecretHandler 密信 API 處理器.
type SecretHandler struct {
	service *secret.Service
}

// NewSecretHandler 創建密信 API 處理器.
func NewSecretHandler(service *secret.Service) *SecretHandler {
	return &SecretHandler{service: service}
}

// createSecretRequest 建立請求的線路格式，欄位均為 base64url 字串.
type createSecretRequest struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Expiry     string `json:"expiry"`
}

// redeemSecretRequest 兌換請求.
type redeemSecretRequest struct {
	ID string `json:"id"`
}

// requestContext 為存儲呼叫加上超時，由傳輸層統一執行.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	timeout := constants.DefaultRequestTimeout * time.Second
	if cfg := config.Get(); cfg != nil && cfg.Server.Timeout > 0 {
		timeout = time.Duration(cfg.Server.Timeout) * time.Second
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// redemptionURL 以配置的站點來源組出兌換 URL（不含金鑰 fragment，
// 金鑰只存在於客戶端）。未配置 link_base_url 時回傳空字串，
// 由客戶端自行組裝。
func redemptionURL(id string) string {
	cfg := config.Get()
	if cfg == nil || cfg.Server.LinkBaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(cfg.Server.LinkBaseURL, "/") + constants.RedemptionPathPrefix + id
}

// CreateSecret 建立密信.
// 伺服器只收到密文三元組，金鑰從不出現在請求中.
func (h *SecretHandler) CreateSecret(c *gin.Context) {
	var req createSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httputil.PayloadTooLarge(c)
			return
		}
		httputil.BadRequest(c, httputil.MsgInvalidPayload)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.service.Create(ctx, secret.CreateInput{
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		AuthTag:    req.AuthTag,
		Expiry:     req.Expiry,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := middleware.GetRequestMetadataFromGin(c)
	logger.Info(c.Request.Context(), "密信已建立",
		logger.WithSecretID(result.ID),
		logger.WithAction("create"),
		logger.WithClientIP(meta.IPAddress))

	resp := httputil.Success(httputil.MsgSecretCreated)
	resp["id"] = result.ID
	resp["expiresAt"] = result.ExpiresAt.Format(time.RFC3339)
	if url := redemptionURL(result.ID); url != "" {
		resp["url"] = url
	}
	c.JSON(http.StatusCreated, resp)
}

// PeekSecret 非破壞性查詢過期時間，供接收端顯示倒數.
// 已過期與不存在合併為一種結果，不洩露密文.
func (h *SecretHandler) PeekSecret(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	expiresAt, err := h.service.PeekExpiry(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, secret.ErrNotFound) {
			httputil.NotFoundError(c, "Secret not found or expired")
			return
		}
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// RedeemSecret 一次性兌換：返回加密三元組並原子性銷毀記錄.
func (h *SecretHandler) RedeemSecret(c *gin.Context) {
	var req redeemSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, httputil.MsgInvalidPayload)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.service.Redeem(ctx, req.ID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp := httputil.Success(httputil.MsgSecretRedeemed)
	resp["ciphertext"] = result.Ciphertext
	resp["iv"] = result.IV
	resp["authTag"] = result.AuthTag
	resp["expiresAt"] = result.ExpiresAt.Format(time.RFC3339)
	c.JSON(http.StatusOK, resp)
}

// writeServiceError 將核心錯誤分類映射為狀態碼與用戶文案.
func (h *SecretHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, secret.ErrInvalidInput):
		httputil.BadRequest(c, err.Error())
	case errors.Is(err, secret.ErrNotFound):
		httputil.NotFoundError(c, "")
	case errors.Is(err, secret.ErrExpired):
		httputil.GoneError(c, "")
	case errors.Is(err, secret.ErrStorageExhausted):
		httputil.SafeError(c, http.StatusInternalServerError, httputil.ErrorCodeStorageExhausted, err, httputil.MsgStorageFailed)
	case errors.Is(err, secret.ErrStorageUnavailable):
		httputil.SafeError(c, http.StatusInternalServerError, httputil.ErrorCodeStorageUnavailable, err, httputil.MsgStorageFailed)
	default:
		httputil.InternalServerError(c, err)
	}
}

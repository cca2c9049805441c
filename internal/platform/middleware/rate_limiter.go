package middleware

import (
	"strconv"
	"sync"
	"time"

	"secret-gateway/internal/httputil"

	"github.com/gin-gonic/gin"
)

// RateLimiter 固定窗口速率限制器。
// 進程內狀態：多實例部署時每個實例獨立計數，
// 這是已知限制而非缺陷；換成共享存儲時呼叫端無需改動。
type RateLimiter struct {
	visitors        map[string]*visitor
	mu              sync.Mutex
	limit           int           // 每個時間窗口允許的請求數
	window          time.Duration // 時間窗口
	cleanupInterval time.Duration // 陳舊記錄的清理週期
}

// visitor 單一客戶端身份在當前窗口內的計數
type visitor struct {
	lastSeen time.Time
	count    int
	resetAt  time.Time
}

// Result 單次檢查的完整結果，供傳輸層輸出限流元數據。
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration // 僅在拒絕時有意義
}

// NewRateLimiter 創建固定窗口速率限制器。
// limit: 每個時間窗口允許的請求數
// window: 時間窗口（例如：time.Minute）
// cleanupInterval: 陳舊訪問者記錄的清理週期
func NewRateLimiter(limit int, window time.Duration, cleanupInterval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors:        make(map[string]*visitor),
		limit:           limit,
		window:          window,
		cleanupInterval: cleanupInterval,
	}

	// 啟動清理 goroutine，定期清理過期的訪問者記錄
	go rl.cleanupVisitors()

	return rl
}

// Check 對給定身份做一次固定窗口計數。O(1)，整個讀改寫持鎖完成，
// 併發請求不會丟失計數。被拒絕的請求不計入下一個窗口。
func (rl *RateLimiter) Check(identity string) Result {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[identity]

	// 新身份，或舊窗口已過期：開新窗口，計數 1
	if !exists || now.After(v.resetAt) {
		rl.visitors[identity] = &visitor{
			lastSeen: now,
			count:    1,
			resetAt:  now.Add(rl.window),
		}
		return Result{
			Allowed:   true,
			Limit:     rl.limit,
			Remaining: maxInt(rl.limit-1, 0),
			ResetAt:   now.Add(rl.window),
		}
	}

	v.lastSeen = now

	// 已達上限：本窗口剩餘時間內拒絕，不遞增計數
	if v.count >= rl.limit {
		retryAfter := time.Until(v.resetAt)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Result{
			Allowed:    false,
			Limit:      rl.limit,
			Remaining:  0,
			ResetAt:    v.resetAt,
			RetryAfter: retryAfter,
		}
	}

	v.count++
	return Result{
		Allowed:   true,
		Limit:     rl.limit,
		Remaining: maxInt(rl.limit-v.count, 0),
		ResetAt:   v.resetAt,
	}
}

// Middleware 返回 Gin 中間件。
// 每個響應都帶 X-RateLimit-* 元數據；拒絕時額外帶 Retry-After 和 429。
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := rl.Check(GetClientIP(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retrySeconds := int(result.RetryAfter.Round(time.Second).Seconds())
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(retrySeconds))
			httputil.RateLimitExceeded(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// cleanupVisitors 依配置的週期清理陳舊的訪問者記錄
func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.removeStale(time.Now())
	}
}

// removeStale 刪除超過兩個清理週期沒有活動的訪問者記錄
func (rl *RateLimiter) removeStale(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for identity, v := range rl.visitors {
		if now.Sub(v.lastSeen) > 2*rl.cleanupInterval {
			delete(rl.visitors, identity)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

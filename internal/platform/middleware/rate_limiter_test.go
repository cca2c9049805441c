package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)

	// 前三個請求放行，remaining 遞減
	for i, wantRemaining := range []int{2, 1, 0} {
		result := rl.Check("10.0.0.1")
		if !result.Allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
		if result.Remaining != wantRemaining {
			t.Errorf("Request %d remaining = %d, want %d", i+1, result.Remaining, wantRemaining)
		}
		if result.Limit != 3 {
			t.Errorf("Request %d limit = %d, want 3", i+1, result.Limit)
		}
	}

	// 第四個請求拒絕，帶 RetryAfter
	result := rl.Check("10.0.0.1")
	if result.Allowed {
		t.Fatal("Fourth request should be rejected")
	}
	if result.Remaining != 0 {
		t.Errorf("Rejected remaining = %d, want 0", result.Remaining)
	}
	if result.RetryAfter <= 0 {
		t.Errorf("Rejected RetryAfter = %v, want > 0", result.RetryAfter)
	}
	if result.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v exceeds window", result.RetryAfter)
	}
}

func TestRateLimiterIndependentIdentities(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, time.Minute)

	if !rl.Check("10.0.0.1").Allowed {
		t.Fatal("First identity should be allowed")
	}
	if !rl.Check("10.0.0.2").Allowed {
		t.Fatal("Second identity should not share the first identity's window")
	}
	if rl.Check("10.0.0.1").Allowed {
		t.Fatal("First identity should now be rejected")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond, time.Minute)

	rl.Check("10.0.0.1")
	rl.Check("10.0.0.1")
	if rl.Check("10.0.0.1").Allowed {
		t.Fatal("Third request in window should be rejected")
	}

	// 窗口過期後重新計數
	time.Sleep(60 * time.Millisecond)

	result := rl.Check("10.0.0.1")
	if !result.Allowed {
		t.Fatal("Request after window lapse should be allowed")
	}
	if result.Remaining != 1 {
		t.Errorf("Fresh window remaining = %d, want 1 (count restarted at 1)", result.Remaining)
	}
}

func TestRateLimiterRejectionsDoNotCarryOver(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond, time.Minute)

	rl.Check("10.0.0.1")
	// 多次被拒絕的請求不得計入下一個窗口
	for i := 0; i < 5; i++ {
		rl.Check("10.0.0.1")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Check("10.0.0.1").Allowed {
		t.Fatal("New window should start with a fresh count despite prior rejections")
	}
}

func TestRateLimiterRemoveStale(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute, time.Minute)

	rl.Check("10.0.0.1")
	rl.Check("10.0.0.2")
	if len(rl.visitors) != 2 {
		t.Fatalf("visitors = %d, want 2", len(rl.visitors))
	}

	// 未超過兩個清理週期的記錄保留
	rl.removeStale(time.Now().Add(90 * time.Second))
	if len(rl.visitors) != 2 {
		t.Errorf("提前清理了未陳舊的記錄，visitors = %d", len(rl.visitors))
	}

	// 超過兩個清理週期後全部清除
	rl.removeStale(time.Now().Add(3 * time.Minute))
	if len(rl.visitors) != 0 {
		t.Errorf("陳舊記錄未被清除，visitors = %d", len(rl.visitors))
	}
}

func TestRateLimiterConcurrentCounting(t *testing.T) {
	const limit = 50
	rl := NewRateLimiter(limit, time.Minute, time.Minute)

	results := make(chan bool, limit*2)
	for i := 0; i < limit*2; i++ {
		go func() {
			results <- rl.Check("10.0.0.1").Allowed
		}()
	}

	allowed := 0
	for i := 0; i < limit*2; i++ {
		if <-results {
			allowed++
		}
	}

	// 併發遞增不得丟失更新：恰好放行 limit 個
	if allowed != limit {
		t.Errorf("Concurrent checks allowed %d requests, want exactly %d", allowed, limit)
	}
}

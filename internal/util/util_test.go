package util

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryPermanent(t *testing.T) {
	attempts := 0
	sentinel := errors.New("bad request")

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		return Permanent(sentinel)
	})

	if err != sentinel {
		t.Errorf("Retry returned %v, want the unwrapped permanent error", err)
	}
	if attempts != 1 {
		t.Errorf("Retry called fn %d times, want 1", attempts)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestRetryZeroAttempts(t *testing.T) {
	attempts := 0
	_ = Retry(context.Background(), 0, 0, func() error {
		attempts++
		return nil
	})
	if attempts != 1 {
		t.Errorf("Retry with maxAttempts 0 called fn %d times, want 1", attempts)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	// The bucket starts with one token.
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}
	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait on cancelled context returned nil")
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait #%d returned error: %v", i, err)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "warn", "json").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buf.String())
	}

	newLogger(&buf, "debug", "json").Debug("shown", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json logger wrote %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "info", "text").Info("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("text logger wrote %q", buf.String())
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{date(2010, 3, 31), -1, date(2010, 2, 28)},
		{date(2012, 3, 31), -1, date(2012, 2, 29)},
		{date(2010, 5, 31), -13, date(2009, 4, 30)},
		{date(2010, 2, 28), -4, date(2009, 10, 28)},
		{date(2010, 1, 15), 12, date(2011, 1, 15)},
	}
	for _, tt := range tests {
		if got := AddMonths(tt.in, tt.n); !got.Equal(tt.want) {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", tt.in.Format("2006-01-02"), tt.n,
				got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
		}
	}
}

func TestMonthEnds(t *testing.T) {
	got := MonthEnds(date(2023, 11, 30), date(2024, 3, 15))
	want := []time.Time{date(2023, 11, 30), date(2023, 12, 31), date(2024, 1, 31), date(2024, 2, 29)}
	if len(got) != len(want) {
		t.Fatalf("MonthEnds returned %d dates, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("MonthEnds[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// A start in the middle of a month begins at that month's end.
	got = MonthEnds(date(2024, 1, 10), date(2024, 1, 31))
	if len(got) != 1 || !got[0].Equal(date(2024, 1, 31)) {
		t.Errorf("MonthEnds(mid-month) = %v, want [2024-01-31]", got)
	}

	if got := MonthEnds(date(2024, 5, 1), date(2024, 4, 1)); len(got) != 0 {
		t.Errorf("MonthEnds with end before start = %v, want empty", got)
	}
}

func TestLastCompletedMonthEnd(t *testing.T) {
	now := time.Date(2025, 5, 14, 15, 30, 0, 0, time.UTC)
	if got := LastCompletedMonthEnd(now); !got.Equal(date(2025, 4, 30)) {
		t.Errorf("LastCompletedMonthEnd = %s, want 2025-04-30", got)
	}
}

package cache

import (
	"context"
	"testing"
)

func TestStatsKeyLayout(t *testing.T) {
	got := StatsKey(12, "summary", "2026-01-01", "2026-01-31")
	want := "stats:tenant:12:summary:2026-01-01:2026-01-31"
	if got != want {
		t.Fatalf("unexpected key: got=%s want=%s", got, want)
	}
}

func TestCacheDisabledIsNoop(t *testing.T) {
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("expected cache disabled")
	}
	var dest map[string]int
	hit, err := GetJSON(context.Background(), "k", &dest)
	if err != nil || hit {
		t.Fatalf("expected miss without error, got hit=%v err=%v", hit, err)
	}
	deleted, err := InvalidateTenantStats(context.Background(), 1)
	if err != nil || deleted != 0 {
		t.Fatalf("expected noop invalidation, got deleted=%d err=%v", deleted, err)
	}
}

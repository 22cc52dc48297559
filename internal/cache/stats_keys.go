package cache

import (
	"context"
	"fmt"
)

// 统计缓存键按租户分组，聚合完成后整组失效
func statsTenantPrefix(tenantID uint) string {
	return fmt.Sprintf("stats:tenant:%d:", tenantID)
}

// StatsKey 统计报表缓存键
func StatsKey(tenantID uint, report string, parts ...interface{}) string {
	key := statsTenantPrefix(tenantID) + report
	for _, part := range parts {
		key += fmt.Sprintf(":%v", part)
	}
	return key
}

// InvalidateTenantStats 清除租户全部统计缓存
func InvalidateTenantStats(ctx context.Context, tenantID uint) (int64, error) {
	return DelByPrefix(ctx, statsTenantPrefix(tenantID))
}

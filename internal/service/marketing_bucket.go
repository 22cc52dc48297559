package service

import (
	"sort"
	"time"

	"github.com/dujiao-next/marketing/internal/logger"
	"github.com/dujiao-next/marketing/internal/models"

	"github.com/google/uuid"
)

const statDateLayout = "2006-01-02"

// marketingBucketKey 日统计分桶键（无链接为 0，缺失 UTM 为空串）
type marketingBucketKey struct {
	TenantID    uint
	StatDate    string
	CampaignID  uint
	LinkID      uint
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string
}

type marketingBucket struct {
	sessions    map[string]struct{}
	conversions int64
}

// marketingBucketRow 分桶计算结果
type marketingBucketRow struct {
	Key         marketingBucketKey
	Visits      int64
	Conversions int64
}

// marketingBucketer 把原始访问/转化按日分桶
// 访问按会话去重；缺失会话ID的访问各自生成唯一标识，计数但不去重。
type marketingBucketer struct {
	tenantOf     func(campaignID uint) (uint, bool)
	tenantFilter *uint
	buckets      map[marketingBucketKey]*marketingBucket

	totalVisits            int
	totalConversions       int
	skippedVisits          int
	skippedConversions     int
	visitsWithoutSessionID int
}

func newMarketingBucketer(tenantOf func(campaignID uint) (uint, bool), tenantFilter *uint) *marketingBucketer {
	return &marketingBucketer{
		tenantOf:     tenantOf,
		tenantFilter: tenantFilter,
		buckets:      make(map[marketingBucketKey]*marketingBucket),
	}
}

// resolveTenant 返回 false 表示记录被跳过（campaign 缺失或无法映射租户）
func (b *marketingBucketer) resolveTenant(campaignID *uint) (uint, bool, bool) {
	if campaignID == nil {
		return 0, false, false
	}
	tenantID, ok := b.tenantOf(*campaignID)
	if !ok {
		return 0, false, false
	}
	if b.tenantFilter != nil && *b.tenantFilter != tenantID {
		return tenantID, true, false
	}
	return tenantID, true, true
}

func (b *marketingBucketer) addVisit(visit models.CampaignVisit) {
	tenantID, resolved, keep := b.resolveTenant(visit.CampaignID)
	if !resolved {
		b.skippedVisits++
		return
	}
	if !keep {
		return
	}
	b.totalVisits++
	bucket := b.bucketFor(buildBucketKey(tenantID, *visit.CampaignID, visit.LinkID, visit.UTM(), visit.OccurredAt))
	session := stringPtrValue(visit.SessionID)
	if session == "" {
		b.visitsWithoutSessionID++
		session = "anon:" + uuid.NewString()
		logger.Debugw("marketing_visit_session_synthesized",
			"visit_id", visit.ID,
			"campaign_id", *visit.CampaignID,
			"session_token", session,
		)
	}
	bucket.sessions[session] = struct{}{}
}

func (b *marketingBucketer) addConversion(conversion models.CampaignConversion) {
	tenantID, resolved, keep := b.resolveTenant(conversion.CampaignID)
	if !resolved {
		b.skippedConversions++
		return
	}
	if !keep {
		return
	}
	b.totalConversions++
	bucket := b.bucketFor(buildBucketKey(tenantID, *conversion.CampaignID, conversion.LinkID, conversion.UTM(), conversion.OccurredAt))
	bucket.conversions++
}

func (b *marketingBucketer) bucketFor(key marketingBucketKey) *marketingBucket {
	bucket, ok := b.buckets[key]
	if !ok {
		bucket = &marketingBucket{sessions: make(map[string]struct{})}
		b.buckets[key] = bucket
	}
	return bucket
}

// rows 返回按键排序的分桶结果
func (b *marketingBucketer) rows() []marketingBucketRow {
	rows := make([]marketingBucketRow, 0, len(b.buckets))
	for key, bucket := range b.buckets {
		rows = append(rows, marketingBucketRow{
			Key:         key,
			Visits:      int64(len(bucket.sessions)),
			Conversions: bucket.conversions,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Key.less(rows[j].Key)
	})
	return rows
}

func buildBucketKey(tenantID, campaignID uint, linkID *uint, utm models.UTMColumns, occurredAt time.Time) marketingBucketKey {
	key := marketingBucketKey{
		TenantID:    tenantID,
		StatDate:    occurredAt.UTC().Format(statDateLayout),
		CampaignID:  campaignID,
		UTMSource:   stringPtrValue(utm.Source),
		UTMMedium:   stringPtrValue(utm.Medium),
		UTMCampaign: stringPtrValue(utm.Campaign),
		UTMTerm:     stringPtrValue(utm.Term),
		UTMContent:  stringPtrValue(utm.Content),
	}
	if linkID != nil {
		key.LinkID = *linkID
	}
	return key
}

func bucketKeyOfStat(row models.MarketingStatDaily) marketingBucketKey {
	return marketingBucketKey{
		TenantID:    row.TenantID,
		StatDate:    row.StatDate,
		CampaignID:  row.CampaignID,
		LinkID:      row.LinkID,
		UTMSource:   row.UTMSource,
		UTMMedium:   row.UTMMedium,
		UTMCampaign: row.UTMCampaign,
		UTMTerm:     row.UTMTerm,
		UTMContent:  row.UTMContent,
	}
}

func (k marketingBucketKey) less(o marketingBucketKey) bool {
	if k.TenantID != o.TenantID {
		return k.TenantID < o.TenantID
	}
	if k.StatDate != o.StatDate {
		return k.StatDate < o.StatDate
	}
	if k.CampaignID != o.CampaignID {
		return k.CampaignID < o.CampaignID
	}
	if k.LinkID != o.LinkID {
		return k.LinkID < o.LinkID
	}
	a := [5]string{k.UTMSource, k.UTMMedium, k.UTMCampaign, k.UTMTerm, k.UTMContent}
	c := [5]string{o.UTMSource, o.UTMMedium, o.UTMCampaign, o.UTMTerm, o.UTMContent}
	for i := range a {
		if a[i] != c[i] {
			return a[i] < c[i]
		}
	}
	return false
}

func (k marketingBucketKey) toModel(visits, conversions int64, now time.Time) models.MarketingStatDaily {
	return models.MarketingStatDaily{
		TenantID:    k.TenantID,
		StatDate:    k.StatDate,
		CampaignID:  k.CampaignID,
		LinkID:      k.LinkID,
		UTMSource:   k.UTMSource,
		UTMMedium:   k.UTMMedium,
		UTMCampaign: k.UTMCampaign,
		UTMTerm:     k.UTMTerm,
		UTMContent:  k.UTMContent,
		Visits:      visits,
		Conversions: conversions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// utcDayStart 取 UTC 当日零点
func utcDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

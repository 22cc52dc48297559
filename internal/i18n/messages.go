package i18n

var catalog = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":             "请求参数错误",
		"error.unauthorized":            "未登录或登录已过期",
		"error.forbidden":               "无权访问",
		"error.not_found":               "资源不存在",
		"error.too_many_requests":       "请求过于频繁，请稍后再试",
		"error.internal":                "服务器内部错误",
		"error.tenant_invalid":          "租户信息无效",
		"error.campaign_not_found":      "活动不存在",
		"error.link_not_found":          "推广链接不存在",
		"error.link_name_required":      "链接名称不能为空",
		"error.link_target_invalid":     "链接投放目标无效",
		"error.landing_variant_invalid": "落地页类型无效",
		"error.link_status_invalid":     "链接状态无效",
		"error.link_locked":             "链接已产生转化，不能修改落地页和 UTM",
		"error.link_id_generate_failed": "链接 ID 生成失败，请重试",
		"error.session_required":        "缺少会话标识",
		"error.stats_range_invalid":     "统计日期范围无效",
		"error.date_invalid":            "日期格式错误，应为 YYYY-MM-DD",
		"error.queue_disabled":          "任务队列未启用",
		"error.aggregate_failed":        "统计聚合失败",
		"error.cron_secret_invalid":     "定时任务密钥无效",
		"error.rate_limited":            "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":  "限流服务暂不可用",
		"error.jwt_secret_missing":      "未配置 JWT 密钥",
		"error.auth_header_missing":     "缺少 Authorization 请求头",
		"error.auth_header_invalid":     "Authorization 格式错误",
		"error.token_invalid":           "令牌无效或已过期",
		"msg.aggregate_queued":          "聚合任务已提交",
		"msg.aggregate_pending":         "相同聚合任务正在排队",
	},
	LocaleTW: {
		"error.bad_request":             "請求參數錯誤",
		"error.unauthorized":            "未登入或登入已過期",
		"error.forbidden":               "無權存取",
		"error.not_found":               "資源不存在",
		"error.too_many_requests":       "請求過於頻繁，請稍後再試",
		"error.internal":                "伺服器內部錯誤",
		"error.tenant_invalid":          "租戶資訊無效",
		"error.campaign_not_found":      "活動不存在",
		"error.link_not_found":          "推廣連結不存在",
		"error.link_name_required":      "連結名稱不能為空",
		"error.link_target_invalid":     "連結投放目標無效",
		"error.landing_variant_invalid": "落地頁類型無效",
		"error.link_status_invalid":     "連結狀態無效",
		"error.link_locked":             "連結已產生轉化，不能修改落地頁和 UTM",
		"error.link_id_generate_failed": "連結 ID 產生失敗，請重試",
		"error.session_required":        "缺少會話標識",
		"error.stats_range_invalid":     "統計日期範圍無效",
		"error.date_invalid":            "日期格式錯誤，應為 YYYY-MM-DD",
		"error.queue_disabled":          "任務佇列未啟用",
		"error.aggregate_failed":        "統計聚合失敗",
		"error.cron_secret_invalid":     "排程密鑰無效",
		"error.rate_limited":            "請求過於頻繁，請 %d 秒後再試",
		"error.rate_limit_unavailable":  "限流服務暫不可用",
		"error.jwt_secret_missing":      "未設定 JWT 密鑰",
		"error.auth_header_missing":     "缺少 Authorization 請求標頭",
		"error.auth_header_invalid":     "Authorization 格式錯誤",
		"error.token_invalid":           "權杖無效或已過期",
		"msg.aggregate_queued":          "聚合任務已提交",
		"msg.aggregate_pending":         "相同聚合任務正在排隊",
	},
	LocaleEN: {
		"error.bad_request":             "Invalid request parameters",
		"error.unauthorized":            "Not signed in or session expired",
		"error.forbidden":               "Access denied",
		"error.not_found":               "Resource not found",
		"error.too_many_requests":       "Too many requests, please retry later",
		"error.internal":                "Internal server error",
		"error.tenant_invalid":          "Invalid tenant",
		"error.campaign_not_found":      "Campaign not found",
		"error.link_not_found":          "Campaign link not found",
		"error.link_name_required":      "Link name is required",
		"error.link_target_invalid":     "Invalid link target",
		"error.landing_variant_invalid": "Invalid landing variant",
		"error.link_status_invalid":     "Invalid link status",
		"error.link_locked":             "Link has conversions; landing variant and UTM are locked",
		"error.link_id_generate_failed": "Failed to generate a link ID, please retry",
		"error.session_required":        "Session ID is required",
		"error.stats_range_invalid":     "Invalid date range",
		"error.date_invalid":            "Invalid date, expected YYYY-MM-DD",
		"error.queue_disabled":          "Task queue is disabled",
		"error.aggregate_failed":        "Aggregation failed",
		"error.cron_secret_invalid":     "Invalid cron secret",
		"error.rate_limited":            "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":  "Rate limiter unavailable",
		"error.jwt_secret_missing":      "JWT secret is not configured",
		"error.auth_header_missing":     "Authorization header is missing",
		"error.auth_header_invalid":     "Authorization header is malformed",
		"error.token_invalid":           "Token is invalid or expired",
		"msg.aggregate_queued":          "Aggregation task queued",
		"msg.aggregate_pending":         "An identical aggregation task is already queued",
	},
}

package models

// UTMColumns 原始事件与链接共用的 UTM 字段集合
type UTMColumns struct {
	Source   *string
	Medium   *string
	Campaign *string
	Term     *string
	Content  *string
}

// UTM 返回链接存储的 UTM 字段
func (l CampaignLink) UTM() UTMColumns {
	return UTMColumns{
		Source:   l.UTMSource,
		Medium:   l.UTMMedium,
		Campaign: l.UTMCampaign,
		Term:     l.UTMTerm,
		Content:  l.UTMContent,
	}
}

// UTM 返回访问记录的 UTM 字段
func (v CampaignVisit) UTM() UTMColumns {
	return UTMColumns{
		Source:   v.UTMSource,
		Medium:   v.UTMMedium,
		Campaign: v.UTMCampaign,
		Term:     v.UTMTerm,
		Content:  v.UTMContent,
	}
}

// UTM 返回转化记录的 UTM 字段
func (c CampaignConversion) UTM() UTMColumns {
	return UTMColumns{
		Source:   c.UTMSource,
		Medium:   c.UTMMedium,
		Campaign: c.UTMCampaign,
		Term:     c.UTMTerm,
		Content:  c.UTMContent,
	}
}

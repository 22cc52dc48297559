package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode/utf8"
)

const (
	trackingIDLength   = 8
	trackingIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	utmValueMaxLength  = 200
)

// UTMParams UTM 参数集合，nil 表示缺省（与空字符串不同）
type UTMParams struct {
	Source   *string `json:"utm_source,omitempty"`
	Medium   *string `json:"utm_medium,omitempty"`
	Campaign *string `json:"utm_campaign,omitempty"`
	Term     *string `json:"utm_term,omitempty"`
	Content  *string `json:"utm_content,omitempty"`
}

// IsEmpty 是否没有任何 UTM 字段
func (p UTMParams) IsEmpty() bool {
	return p.Source == nil && p.Medium == nil && p.Campaign == nil && p.Term == nil && p.Content == nil
}

// FillFrom 仅用 other 填充当前为空的字段
func (p UTMParams) FillFrom(other UTMParams) UTMParams {
	if p.Source == nil {
		p.Source = other.Source
	}
	if p.Medium == nil {
		p.Medium = other.Medium
	}
	if p.Campaign == nil {
		p.Campaign = other.Campaign
	}
	if p.Term == nil {
		p.Term = other.Term
	}
	if p.Content == nil {
		p.Content = other.Content
	}
	return p
}

// GenerateTrackingID 生成 8 位大写字母数字标识，唯一性由调用方的唯一索引保证
func GenerateTrackingID() (string, error) {
	var builder strings.Builder
	builder.Grow(trackingIDLength)
	max := big.NewInt(int64(len(trackingIDAlphabet)))
	for i := 0; i < trackingIDLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(trackingIDAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

// ValidateTrackingID 校验长度与字符集
func ValidateTrackingID(value string) bool {
	if len(value) != trackingIDLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// NormalizeTrackingID 去空白并转大写，不合法时返回空字符串
// 不可信输入必须经过此函数，避免大小写差异拆分归因。
func NormalizeTrackingID(raw string) string {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if !ValidateTrackingID(value) {
		return ""
	}
	return value
}

// NormalizeUTM 逐字段 trim、转小写、截断，空值视为缺省
func NormalizeUTM(params UTMParams) UTMParams {
	return UTMParams{
		Source:   normalizeUTMValue(params.Source),
		Medium:   normalizeUTMValue(params.Medium),
		Campaign: normalizeUTMValue(params.Campaign),
		Term:     normalizeUTMValue(params.Term),
		Content:  normalizeUTMValue(params.Content),
	}
}

func normalizeUTMValue(raw *string) *string {
	if raw == nil {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(*raw))
	if value == "" {
		return nil
	}
	if utf8.RuneCountInString(value) > utmValueMaxLength {
		runes := []rune(value)
		value = strings.TrimSpace(string(runes[:utmValueMaxLength]))
		if value == "" {
			return nil
		}
	}
	return &value
}

// UTMFromValues 从查询参数读取 UTM，未出现的键保持缺省
func UTMFromValues(get func(key string) (string, bool)) UTMParams {
	read := func(key string) *string {
		value, ok := get(key)
		if !ok {
			return nil
		}
		return &value
	}
	return NormalizeUTM(UTMParams{
		Source:   read("utm_source"),
		Medium:   read("utm_medium"),
		Campaign: read("utm_campaign"),
		Term:     read("utm_term"),
		Content:  read("utm_content"),
	})
}

func stringPtrValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func stringPtrOrNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

package service

import (
	"fmt"
	"strings"
	"time"
)

// ParseStatDate 解析 YYYY-MM-DD（或 RFC3339）日期参数，空串返回 nil
func ParseStatDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.ParseInLocation(statDateLayout, raw, time.UTC); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, raw)
	}
	utc := parsed.UTC()
	return &utc, nil
}

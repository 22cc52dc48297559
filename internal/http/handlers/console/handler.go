package console

import "github.com/dujiao-next/marketing/internal/provider"

// Handler 控制台接口处理器入口
// 说明：租户来自控制台令牌，所有查询都限定在该租户内。
type Handler struct {
	*provider.Container
}

// New 创建控制台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

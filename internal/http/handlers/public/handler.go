package public

import "github.com/dujiao-next/marketing/internal/provider"

// Handler 公开追踪接口处理器入口
// 说明：该处理器只服务落地页埋点，不需要登录。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

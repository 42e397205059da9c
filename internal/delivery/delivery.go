package delivery

import (
	"context"
	"sync"
)

// Payload 渲染完成的投递载荷
// 模板占位符已全部替换，通道实现不再做任何渲染
type Payload struct {
	// To 收件地址，语义随通道而异：邮箱、手机号、Webhook URL 或推送目标
	To         string
	Subject    string
	Content    string
	AudienceID string // Mailchimp 受众列表
	FirstName  string
	LastName   string
}

// Deliverable 单个投递通道
type Deliverable interface {
	Execute(ctx context.Context, payload Payload) error
}

// Registry 动作类型到投递通道的映射
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Deliverable
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Deliverable)}
}

// Register 注册动作类型对应的通道，同名覆盖
func (r *Registry) Register(actionType string, d Deliverable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[actionType] = d
}

// Get 查找动作类型对应的通道
func (r *Registry) Get(actionType string) (Deliverable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.channels[actionType]
	return d, ok
}

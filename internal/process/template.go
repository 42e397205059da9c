package process

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// TemplateRenderer 动作模板渲染器
// 将 {{token}} 占位符替换为上下文值；单次扫描，替换结果不再二次展开
type TemplateRenderer struct {
	data map[string]any
}

// NewTemplateRenderer 以扁平上下文创建渲染器
func NewTemplateRenderer(data map[string]any) *TemplateRenderer {
	return &TemplateRenderer{data: data}
}

// Render 渲染模板
// 上下文中不存在的键替换为空串，而不是保留字面量
func (r *TemplateRenderer) Render(template string) string {
	if template == "" || !strings.Contains(template, "{{") {
		return template
	}

	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := r.data[key]
		if !ok || value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}

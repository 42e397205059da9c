package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bookflow/internal/config"
)

// WhatsAppChannel 通过 HTTP 网关发送 WhatsApp 文本消息
type WhatsAppChannel struct {
	cfg    config.WhatsAppConfig
	client *http.Client
}

// NewWhatsAppChannel 创建 WhatsApp 通道
func NewWhatsAppChannel(cfg config.WhatsAppConfig) *WhatsAppChannel {
	return &WhatsAppChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *WhatsAppChannel) Execute(ctx context.Context, payload Payload) error {
	if payload.To == "" {
		return fmt.Errorf("手机号为空")
	}

	body, err := json.Marshal(map[string]any{
		"to":   payload.To,
		"type": "text",
		"text": map[string]string{"body": payload.Content},
	})
	if err != nil {
		return fmt.Errorf("构建请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("调用WhatsApp网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("WhatsApp网关返回 %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

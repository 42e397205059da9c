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

// SMSChannel 通过 HTTP 短信网关发送文本消息
type SMSChannel struct {
	cfg    config.SMSConfig
	client *http.Client
}

// NewSMSChannel 创建短信通道
func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	return &SMSChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *SMSChannel) Execute(ctx context.Context, payload Payload) error {
	if payload.To == "" {
		return fmt.Errorf("手机号为空")
	}

	body, err := json.Marshal(map[string]string{
		"to":      payload.To,
		"from":    c.cfg.Sender,
		"message": payload.Content,
	})
	if err != nil {
		return fmt.Errorf("构建请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("调用短信网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("短信网关返回 %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

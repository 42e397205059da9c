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

// PushChannel 通过 HTTP 网关下发移动端推送通知
type PushChannel struct {
	cfg    config.PushConfig
	client *http.Client
}

// NewPushChannel 创建推送通道
func NewPushChannel(cfg config.PushConfig) *PushChannel {
	return &PushChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *PushChannel) Execute(ctx context.Context, payload Payload) error {
	if payload.To == "" {
		return fmt.Errorf("推送目标为空")
	}

	body, err := json.Marshal(map[string]string{
		"target": payload.To,
		"title":  payload.Subject,
		"body":   payload.Content,
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
		return fmt.Errorf("调用推送网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("推送网关返回 %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

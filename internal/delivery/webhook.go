package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"bookflow/internal/config"
)

// WebhookChannel 向外部系统推送已渲染的内容
// 请求体为动作模板渲染结果，附带 HMAC-SHA256 签名头供对端校验
type WebhookChannel struct {
	cfg    config.WebhookConfig
	client *http.Client
}

// NewWebhookChannel 创建 Webhook 通道
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Execute(ctx context.Context, payload Payload) error {
	if payload.To == "" {
		return fmt.Errorf("Webhook地址为空")
	}

	body := []byte(payload.Content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.To, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(body, c.cfg.Secret))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("调用Webhook失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Webhook返回 %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

// Sign 计算请求体的 HMAC-SHA256 十六进制签名
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

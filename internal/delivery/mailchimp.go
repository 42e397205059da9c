package delivery

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookflow/internal/config"
)

// MailchimpChannel 把联系人加入 Mailchimp 受众列表
// 使用 members 接口的 PUT 语义，重复添加同一邮箱为幂等操作
type MailchimpChannel struct {
	cfg    config.MailchimpConfig
	client *http.Client
}

// NewMailchimpChannel 创建 Mailchimp 通道
func NewMailchimpChannel(cfg config.MailchimpConfig) *MailchimpChannel {
	return &MailchimpChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *MailchimpChannel) Execute(ctx context.Context, payload Payload) error {
	if payload.To == "" {
		return fmt.Errorf("邮箱为空")
	}
	if payload.AudienceID == "" {
		return fmt.Errorf("受众列表未配置")
	}

	email := strings.ToLower(strings.TrimSpace(payload.To))
	sum := md5.Sum([]byte(email))
	subscriberHash := hex.EncodeToString(sum[:])

	body, err := json.Marshal(map[string]any{
		"email_address": email,
		"status_if_new": "subscribed",
		"merge_fields": map[string]string{
			"FNAME": payload.FirstName,
			"LNAME": payload.LastName,
		},
	})
	if err != nil {
		return fmt.Errorf("构建请求体失败: %w", err)
	}

	url := fmt.Sprintf("https://%s.api.mailchimp.com/3.0/lists/%s/members/%s",
		c.cfg.DataCenter, payload.AudienceID, subscriberHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("anystring", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("调用Mailchimp失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Mailchimp返回 %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

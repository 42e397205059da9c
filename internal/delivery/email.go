package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"bookflow/internal/config"
)

// EmailChannel 通过 SMTP 发送 HTML 邮件
type EmailChannel struct {
	cfg config.EmailConfig
}

// NewEmailChannel 创建邮件通道
func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (c *EmailChannel) Execute(ctx context.Context, payload Payload) error {
	if payload.To == "" {
		return fmt.Errorf("收件地址为空")
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", c.cfg.FromName, c.cfg.FromAddress))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", payload.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(payload.Content)

	addr := fmt.Sprintf("%s:%d", c.cfg.SMTPHost, c.cfg.SMTPPort)
	if c.cfg.UseTLS {
		return c.sendWithTLS(addr, payload.To, msg.Bytes())
	}

	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, c.cfg.FromAddress, []string{payload.To}, msg.Bytes()); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// sendWithTLS 使用隐式 TLS 发送邮件
func (c *EmailChannel) sendWithTLS(addr, to string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: c.cfg.SMTPHost}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS连接失败: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("创建SMTP客户端失败: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP认证失败: %w", err)
	}

	if err := client.Mail(c.cfg.FromAddress); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("设置收件人失败: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("获取数据写入器失败: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("提交邮件内容失败: %w", err)
	}

	return client.Quit()
}

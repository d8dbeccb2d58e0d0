// Package notify 将巡检异常推送到 Slack Incoming Webhook
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// maxListedItems 单条消息最多列出的异常条数
const maxListedItems = 20

// Notifier 告警通知
type Notifier interface {
	Notify(ctx context.Context, title string, lines []string) error
}

// SlackNotifier 基于 Incoming Webhook 的通知
type SlackNotifier struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlackNotifier webhookURL 为空时返回 Noop
func NewSlackNotifier(webhookURL string) Notifier {
	if strings.TrimSpace(webhookURL) == "" {
		return Noop{}
	}
	return &SlackNotifier{webhookURL: webhookURL, post: slack.PostWebhookContext}
}

// Notify 发送一条带标题与明细列表的消息
func (n *SlackNotifier) Notify(ctx context.Context, title string, lines []string) error {
	msg := BuildMessage(title, lines)
	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("推送 Slack 消息失败: %w", err)
	}
	return nil
}

// BuildMessage 组装 webhook 消息；超过 maxListedItems 的明细合并为一行摘要
func BuildMessage(title string, lines []string) *slack.WebhookMessage {
	shown := lines
	if len(shown) > maxListedItems {
		shown = shown[:maxListedItems]
	}

	var b strings.Builder
	for _, l := range shown {
		b.WriteString("• ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	if rest := len(lines) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "… 以及另外 %d 条", rest)
	}

	return &slack.WebhookMessage{
		Text: title,
		Attachments: []slack.Attachment{{
			Color: "warning",
			Text:  b.String(),
		}},
	}
}

// Noop 未配置 webhook 时使用
type Noop struct{}

func (Noop) Notify(context.Context, string, []string) error { return nil }

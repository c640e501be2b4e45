package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Notifier delivers one alert. It returns true only when delivery was confirmed;
// failures are logged by the implementation and never returned as errors.
type Notifier interface {
	Deliver(ctx context.Context, msg models.AlertMessage) bool
}

// TelegramNotifier posts Markdown messages to one chat through the Bot API
type TelegramNotifier struct {
	client  *resty.Client
	baseURL string
	token   string
	chatID  string
	limiter *shared.HTTPRequestRateLimiter
}

func NewTelegramNotifier(token, chatID string, cfg shared.ServiceConfig, factory *shared.HTTPClientFactory) *TelegramNotifier {
	client := resty.NewWithClient(factory.CreateOptimizedHTTPClient(cfg.HTTPRequestTimeout))
	client.SetTimeout(cfg.HTTPRequestTimeout)
	client.SetHeader("Content-Type", "application/json")

	return &TelegramNotifier{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   token,
		chatID:  chatID,
		limiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
	}
}

type telegramSendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (n *TelegramNotifier) Deliver(ctx context.Context, msg models.AlertMessage) bool {
	logger := logrus.WithFields(logrus.Fields{
		"component": "TelegramNotifier",
		"kind":      msg.Kind,
		"ipo":       msg.IPO.Name,
	})

	if err := n.limiter.Wait(ctx); err != nil {
		logger.WithError(err).Warn("Telegram delivery cancelled")
		return false
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(telegramSendMessage{ChatID: n.chatID, Text: FormatAlertText(msg), ParseMode: "Markdown"}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token))
	if err != nil {
		logger.WithError(err).Error("Failed to send Telegram message")
		return false
	}

	if resp.StatusCode() != http.StatusOK {
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode(),
			"response":    truncate(resp.String(), 200),
		}).Error("Telegram API error")
		return false
	}

	logger.Info("Telegram message sent")
	return true
}

// WebhookNotifier fans a JSON payload out to every recipient, retrying each independently.
// Delivery succeeds when at least one recipient accepts it.
type WebhookNotifier struct {
	client  *resty.Client
	urls    []string
	limiter *shared.HTTPRequestRateLimiter
}

func NewWebhookNotifier(urls []string, cfg shared.ServiceConfig, factory *shared.HTTPClientFactory) *WebhookNotifier {
	client := resty.NewWithClient(factory.CreateOptimizedHTTPClient(cfg.HTTPRequestTimeout))
	client.SetTimeout(cfg.HTTPRequestTimeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetRetryCount(cfg.MaxRetryAttempts)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return shared.IsRetryableError(err)
		}
		return resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests
	})

	return &WebhookNotifier{
		client:  client,
		urls:    urls,
		limiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
	}
}

func (n *WebhookNotifier) Deliver(ctx context.Context, msg models.AlertMessage) bool {
	payload := BuildWebhookPayload(msg)
	delivered := 0

	for _, url := range n.urls {
		logger := logrus.WithFields(logrus.Fields{
			"component": "WebhookNotifier",
			"url":       url,
			"kind":      msg.Kind,
			"ipo":       msg.IPO.Name,
		})

		if err := n.limiter.Wait(ctx); err != nil {
			logger.WithError(err).Warn("Webhook delivery cancelled")
			break
		}

		resp, err := n.client.R().SetContext(ctx).SetBody(payload).Post(url)
		if err != nil {
			logger.WithError(err).Error("Webhook delivery failed")
			continue
		}
		if !resp.IsSuccess() {
			logger.WithFields(logrus.Fields{
				"status_code": resp.StatusCode(),
				"attempts":    resp.Request.Attempt,
			}).Error("Webhook recipient rejected payload")
			continue
		}

		delivered++
		logger.Debug("Webhook delivered")
	}

	logrus.WithFields(logrus.Fields{
		"component":  "WebhookNotifier",
		"recipients": len(n.urls),
		"delivered":  delivered,
		"requests":   n.limiter.GetRequestCount(),
	}).Info("Webhook fan-out finished")

	return delivered > 0
}

// CompositeNotifier delivers through every channel and succeeds if any channel confirms
type CompositeNotifier struct {
	Channels []Notifier
}

func NewCompositeNotifier(channels ...Notifier) *CompositeNotifier {
	return &CompositeNotifier{Channels: channels}
}

func (c *CompositeNotifier) Deliver(ctx context.Context, msg models.AlertMessage) bool {
	delivered := false
	for _, channel := range c.Channels {
		if channel.Deliver(ctx, msg) {
			delivered = true
		}
	}
	return delivered
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
)

const messageRule = "━━━━━━━━━━━━━━━━"

// markdownEscaper backslash-escapes the entity markers of Telegram's legacy Markdown
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// GreetingText is the channel welcome message sent by `alert --greeting`
const GreetingText = `🎉 *Welcome to IPO GMP Tracker!*

We will post the most promising IPO listings here.

📊 *What you'll get:*
• Daily IPO alerts with GMP data
• "Closing Tomorrow" reminders
• "Closing Today" final alerts
• Average GMP over the last working days

✅ *Subscribe and never miss a high-potential IPO!*`

// NewGreetingMessage wraps free text as an alert message
func NewGreetingMessage(text string) models.AlertMessage {
	if text == "" {
		text = GreetingText
	}
	return models.AlertMessage{Text: text}
}

// FormatAlertText renders msg as Telegram Markdown
func FormatAlertText(msg models.AlertMessage) string {
	if msg.Text != "" {
		return msg.Text
	}

	header := "🟡 *IPO ALERT - CLOSING TOMORROW*"
	footer := "⏰ *Closing Tomorrow - Apply Today!*"
	if msg.Kind == models.AlertClosingToday {
		header = "🔴 *IPO ALERT - CLOSING TODAY*"
		footer = "🚨 *LAST CHANCE - Closing Today!*"
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	// backslash escapes only work outside an entity, so the name is not bolded
	b.WriteString(fmt.Sprintf("📌 %s\n", escapeMarkdown(msg.IPO.Name)))
	b.WriteString(messageRule + "\n")
	b.WriteString(fmt.Sprintf("💰 Price: %s\n", escapeMarkdown(displayOrDash(msg.IPO.Price))))
	b.WriteString(fmt.Sprintf("📊 Subscription: %s\n", escapeMarkdown(displayOrDash(msg.IPO.Subscription))))
	b.WriteString(fmt.Sprintf("📅 Start: %s\n", formatOptionalDate(msg.IPO.StartDate)))
	b.WriteString(fmt.Sprintf("📅 End: %s\n", shared.FormatDate(msg.IPO.EndDate)))
	b.WriteString(messageRule + "\n")
	b.WriteString("📈 *GMP History:*\n")
	for _, s := range chronological(msg.Samples) {
		b.WriteString(fmt.Sprintf("  • %s: %.2f%%\n", shared.FormatDate(s.RecordedOn), s.GMP))
	}
	b.WriteString(messageRule + "\n")
	b.WriteString(fmt.Sprintf("⭐ *Average GMP: %.2f%%*\n\n", RoundGMP(msg.AverageGMP)))
	b.WriteString(footer + "\n\n")
	b.WriteString(fmt.Sprintf("✅ *Recommendation: %s*", msg.Recommendation))
	return b.String()
}

// BuildWebhookPayload converts msg to the JSON body posted to webhook recipients
func BuildWebhookPayload(msg models.AlertMessage) models.WebhookPayload {
	if msg.Text != "" {
		return models.WebhookPayload{AlertType: "message", Text: msg.Text, GMPHistory: []models.WebhookGMPPoint{}}
	}

	history := make([]models.WebhookGMPPoint, 0, len(msg.Samples))
	for _, s := range chronological(msg.Samples) {
		history = append(history, models.WebhookGMPPoint{Date: shared.FormatDate(s.RecordedOn), GMP: s.GMP})
	}

	return models.WebhookPayload{
		AlertType:      string(msg.Kind),
		IPOName:        msg.IPO.Name,
		Price:          msg.IPO.Price,
		Subscription:   msg.IPO.Subscription,
		StartDate:      formatOptionalDate(msg.IPO.StartDate),
		EndDate:        shared.FormatDate(msg.IPO.EndDate),
		AvgGMP:         RoundGMP(msg.AverageGMP),
		GMPHistory:     history,
		Recommendation: msg.Recommendation,
	}
}

func chronological(samples []models.GMPSample) []models.GMPSample {
	sorted := append([]models.GMPSample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RecordedOn.Equal(sorted[j].RecordedOn) {
			return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
		}
		return sorted[i].RecordedOn.Before(sorted[j].RecordedOn)
	})
	return sorted
}

func formatOptionalDate(day *time.Time) string {
	if day == nil {
		return "-"
	}
	return shared.FormatDate(*day)
}

func displayOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

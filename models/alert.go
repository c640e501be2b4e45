package models

import "time"

// AlertKind distinguishes the two closing-date notifications
type AlertKind string

const (
	AlertClosingTomorrow AlertKind = "closing_tomorrow"
	AlertClosingToday    AlertKind = "closing_today"
)

// RecommendationProceed is the only recommendation ever issued; sub-threshold IPOs are not announced
const RecommendationProceed = "PROCEED"

// AlertMessage carries everything a notification channel needs to render an alert
type AlertMessage struct {
	Kind           AlertKind   `json:"kind"`
	IPO            IPO         `json:"ipo"`
	Samples        []GMPSample `json:"samples"`
	AverageGMP     float64     `json:"average_gmp"`
	Recommendation string      `json:"recommendation"`
	GeneratedAt    time.Time   `json:"generated_at"`

	// Text is set for free-form messages such as the channel greeting
	Text string `json:"text,omitempty"`
}

// WebhookGMPPoint is one entry of the webhook gmp_history array
type WebhookGMPPoint struct {
	Date string  `json:"date"`
	GMP  float64 `json:"gmp"`
}

// WebhookPayload is the JSON body posted to every webhook recipient
type WebhookPayload struct {
	AlertType      string            `json:"alert_type"`
	IPOName        string            `json:"ipo_name"`
	Price          string            `json:"price"`
	Subscription   string            `json:"subscription"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	AvgGMP         float64           `json:"avg_gmp"`
	GMPHistory     []WebhookGMPPoint `json:"gmp_history"`
	Recommendation string            `json:"recommendation"`
	Text           string            `json:"text,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// IPOStatus is the alerting lifecycle state of a tracked IPO
type IPOStatus string

const (
	StatusTracking        IPOStatus = "tracking"
	StatusAlertedTomorrow IPOStatus = "alerted_tomorrow"
	StatusAlertedToday    IPOStatus = "alerted_today"
	StatusExpired         IPOStatus = "expired"
)

// IsTerminal reports whether no further transition may leave the status
func (s IPOStatus) IsTerminal() bool {
	return s == StatusAlertedToday || s == StatusExpired
}

// IsValid reports whether s is one of the known lifecycle states
func (s IPOStatus) IsValid() bool {
	switch s {
	case StatusTracking, StatusAlertedTomorrow, StatusAlertedToday, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
// tracking -> alerted_tomorrow -> alerted_today, and tracking/alerted_tomorrow -> expired.
// tracking -> alerted_today covers IPOs first evaluated on their closing day.
func (s IPOStatus) CanTransitionTo(next IPOStatus) bool {
	switch s {
	case StatusTracking:
		return next == StatusAlertedTomorrow || next == StatusAlertedToday || next == StatusExpired
	case StatusAlertedTomorrow:
		return next == StatusAlertedToday || next == StatusExpired
	}
	return false
}

// IPO is one tracked offering. (Name, EndDate) is unique.
type IPO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Price        string     `json:"price"`
	Subscription string     `json:"subscription"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      time.Time  `json:"end_date"`
	Status       IPOStatus  `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScrapedIPO is one row of the source feed snapshot
type ScrapedIPO struct {
	Name          string     `json:"name"`
	GMPPercentage float64    `json:"gmp_percentage"`
	GMPText       string     `json:"gmp_text"`
	Price         string     `json:"price"`
	Subscription  string     `json:"subscription"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       time.Time  `json:"end_date"`
	StartRaw      string     `json:"start_raw"`
	EndRaw        string     `json:"end_raw"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// GMPSample is one recorded grey market premium reading for an IPO.
// RecordedOn is the calendar day (midnight UTC) the reading belongs to.
type GMPSample struct {
	ID         uuid.UUID `json:"id"`
	IPOID      uuid.UUID `json:"ipo_id"`
	GMP        float64   `json:"gmp"`
	RecordedOn time.Time `json:"recorded_on"`
	RecordedAt time.Time `json:"recorded_at"`
}

// IPOWithHistory is an IPO joined with its GMP samples, oldest first
type IPOWithHistory struct {
	IPO
	History    []GMPSample `json:"gmp_history"`
	AverageGMP *float64    `json:"average_gmp,omitempty"`
}

// IPOWithLatestGMP is an IPO with its most recent GMP reading; LatestGMP is nil before the first sample
type IPOWithLatestGMP struct {
	IPO
	LatestGMP *float64 `json:"latest_gmp"`
}

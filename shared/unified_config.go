package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// WindowPolicy selects how recent GMP samples are picked for the average
type WindowPolicy string

const (
	// WindowCalendar averages samples recorded on the last K business days before the end date
	WindowCalendar WindowPolicy = "calendar"
	// WindowRecency averages the K most recently recorded samples regardless of day
	WindowRecency WindowPolicy = "recency"
)

// ParseWindowPolicy maps a configuration string to a WindowPolicy
func ParseWindowPolicy(value string) (WindowPolicy, error) {
	switch WindowPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case WindowCalendar, "":
		return WindowCalendar, nil
	case WindowRecency:
		return WindowRecency, nil
	}
	return "", fmt.Errorf("unknown window policy %q", value)
}

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Alert    AlertPolicy    `json:"alert"`
	Service  ServiceConfig  `json:"service"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
}

// AlertPolicy is the single source of the alerting constants
type AlertPolicy struct {
	// GMPThresholdPercent is inclusive: an average equal to it proceeds
	GMPThresholdPercent float64      `json:"gmp_threshold_percent"`
	WindowPolicy        WindowPolicy `json:"window_policy"`
	WindowSize          int          `json:"window_size"`
	// MinRecencySamples only applies to WindowRecency
	MinRecencySamples int `json:"min_recency_samples"`
	MinLeadDays       int `json:"min_lead_days"`
	RetentionWeeks    int `json:"retention_weeks"`
	// ExpireBelowThresholdEarly expires sub-threshold IPOs on the closing-tomorrow pass
	// instead of leaving them for the closing-day check
	ExpireBelowThresholdEarly bool `json:"expire_below_threshold_early"`
}

// ServiceConfig holds outbound HTTP configuration
type ServiceConfig struct {
	BaseURL            string        `json:"base_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	ServiceName string `json:"service_name"`
}

// ProfileDailyCalendar is one sample per day, two business-day window
func ProfileDailyCalendar() AlertPolicy {
	return AlertPolicy{
		GMPThresholdPercent: 5,
		WindowPolicy:        WindowCalendar,
		WindowSize:          2,
		MinRecencySamples:   2,
		MinLeadDays:         3,
		RetentionWeeks:      2,
	}
}

// ProfileTwiceDailyRecency is two collections a day, last four samples
func ProfileTwiceDailyRecency() AlertPolicy {
	return AlertPolicy{
		GMPThresholdPercent: 5,
		WindowPolicy:        WindowRecency,
		WindowSize:          4,
		MinRecencySamples:   2,
		MinLeadDays:         3,
		RetentionWeeks:      2,
	}
}

// NewDefaultAlertPolicy returns the production alert policy
func NewDefaultAlertPolicy() AlertPolicy {
	return ProfileDailyCalendar()
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Alert: NewDefaultAlertPolicy(),
		Service: ServiceConfig{
			BaseURL:            "https://www.investorgain.com/report/live-ipo-gmp/331/all/",
			HTTPRequestTimeout: 30 * time.Second,
			RequestRateLimit:   1 * time.Second,
			MaxRetryAttempts:   3,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			ServiceName: "ipo-gmp-tracker",
		},
	}
}

// NewNotifierServiceConfig returns outbound notification configuration
func NewNotifierServiceConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL:            "https://api.telegram.org",
		HTTPRequestTimeout: 10 * time.Second,
		RequestRateLimit:   1 * time.Second,
		MaxRetryAttempts:   2,
	}
}

// ValidateAndApplyDefaults validates the policy and applies defaults for invalid values
func (p *AlertPolicy) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "AlertPolicy")
	defaults := NewDefaultAlertPolicy()

	if p.WindowPolicy == "" {
		p.WindowPolicy = defaults.WindowPolicy
		logger.Debug("Applied default AlertPolicy.WindowPolicy")
	}

	if p.WindowSize <= 0 {
		if p.WindowPolicy == WindowRecency {
			p.WindowSize = ProfileTwiceDailyRecency().WindowSize
		} else {
			p.WindowSize = defaults.WindowSize
		}
		logger.Debug("Applied default AlertPolicy.WindowSize")
	}

	if p.MinRecencySamples <= 0 {
		p.MinRecencySamples = defaults.MinRecencySamples
		logger.Debug("Applied default AlertPolicy.MinRecencySamples")
	}

	// a recency window can never hold more samples than its size
	if p.WindowPolicy == WindowRecency && p.MinRecencySamples > p.WindowSize {
		logger.WithFields(logrus.Fields{
			"min_recency_samples": p.MinRecencySamples,
			"window_size":         p.WindowSize,
		}).Warn("MinRecencySamples exceeds WindowSize, clamping to WindowSize")
		p.MinRecencySamples = p.WindowSize
	}

	if p.MinLeadDays < 0 {
		p.MinLeadDays = defaults.MinLeadDays
		logger.Debug("Applied default AlertPolicy.MinLeadDays")
	}

	if p.RetentionWeeks <= 0 {
		p.RetentionWeeks = defaults.RetentionWeeks
		logger.Debug("Applied default AlertPolicy.RetentionWeeks")
	}
}

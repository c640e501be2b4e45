package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	Timezone    string
	Logging     shared.LoggingConfig

	TelegramBotToken  string
	TelegramChannelID string
	WebhookURLs       []string

	SourceURL  string
	SourceMode string
	ExportPath string

	AlertCron   string
	CollectCron string
	TrackCron   string
	CleanupCron string

	Alert shared.AlertPolicy
}

// Alerts run every day so IPOs closing on Monday get their closing-tomorrow alert on Sunday.
// Collection only runs on trading days.
const (
	defaultAlertCron   = "0 9 * * *"
	defaultCollectCron = "0 10,15 * * 1-5"
	defaultTrackCron   = "30 8 * * *"
	defaultCleanupCron = "0 2 * * 0"
)

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	defaults := shared.NewDefaultUnifiedConfiguration()

	policy := defaults.Alert
	policy.GMPThresholdPercent = getEnvFloat("GMP_THRESHOLD_PERCENT", policy.GMPThresholdPercent)
	if windowPolicy, err := shared.ParseWindowPolicy(getEnv("WINDOW_POLICY", string(policy.WindowPolicy))); err == nil {
		policy.WindowPolicy = windowPolicy
	} else {
		logrus.Warnf("Invalid WINDOW_POLICY value: %v, using %s", err, policy.WindowPolicy)
	}
	if policy.WindowPolicy == shared.WindowRecency {
		policy.WindowSize = shared.ProfileTwiceDailyRecency().WindowSize
	}
	policy.WindowSize = getEnvInt("WINDOW_SIZE", policy.WindowSize)
	policy.MinRecencySamples = getEnvInt("MIN_RECENCY_SAMPLES", policy.MinRecencySamples)
	policy.MinLeadDays = getEnvInt("MIN_LEAD_DAYS", policy.MinLeadDays)
	policy.RetentionWeeks = getEnvInt("RETENTION_WEEKS", policy.RetentionWeeks)
	policy.ExpireBelowThresholdEarly = getEnvBool("EXPIRE_BELOW_THRESHOLD_EARLY", false)
	policy.ValidateAndApplyDefaults()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Timezone:          getEnv("TIMEZONE", "Asia/Kolkata"),
		TelegramBotToken:  getEnv("TG_BOT_TOKEN", ""),
		TelegramChannelID: getEnv("TG_CHANNEL_ID", ""),
		WebhookURLs:       splitList(getEnv("WEBHOOK_URLS", "")),
		SourceURL:         getEnv("SOURCE_URL", defaults.Service.BaseURL),
		SourceMode:        getEnv("SOURCE_MODE", "browser"),
		ExportPath:        getEnv("EXPORT_PATH", "TestData/IPO_GMP.xlsx"),
		AlertCron:         getEnv("ALERT_CRON", defaultAlertCron),
		CollectCron:       getEnv("COLLECT_CRON", defaultCollectCron),
		TrackCron:         getEnv("TRACK_CRON", defaultTrackCron),
		CleanupCron:       getEnv("CLEANUP_CRON", defaultCleanupCron),
		Alert:             policy,
		Logging: shared.LoggingConfig{
			Level:       getEnv("LOG_LEVEL", defaults.Logging.Level),
			Format:      getEnv("LOG_FORMAT", defaults.Logging.Format),
			ServiceName: defaults.Logging.ServiceName,
		},
	}
}

// Location resolves the configured timezone; "today" is always taken in it
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logrus.Warnf("Invalid TIMEZONE value: %s, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// HasTelegram reports whether both Telegram credentials are present
func (c *Config) HasTelegram() bool {
	return c.TelegramBotToken != "" && c.TelegramChannelID != ""
}

// Validate checks required settings. requireNotifier is set by commands that deliver alerts.
func (c *Config) Validate(requireNotifier bool) error {
	if c.DatabaseURL == "" {
		return shared.NewConfigurationError("MISSING_DATABASE_URL", "DATABASE_URL environment variable not set")
	}

	if requireNotifier && !c.HasTelegram() && len(c.WebhookURLs) == 0 {
		return shared.NewConfigurationError("MISSING_NOTIFIER",
			"TG_BOT_TOKEN and TG_CHANNEL_ID, or WEBHOOK_URLS, must be set to deliver alerts")
	}

	if (c.TelegramBotToken == "") != (c.TelegramChannelID == "") {
		return shared.NewConfigurationError("PARTIAL_TELEGRAM_CONFIG",
			"TG_BOT_TOKEN and TG_CHANNEL_ID must be set together")
	}

	switch c.SourceMode {
	case "browser", "static":
	default:
		return shared.NewConfigurationError("INVALID_SOURCE_MODE", "SOURCE_MODE must be browser or static")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %g", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %t", key, value, fallback)
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

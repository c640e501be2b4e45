package shared

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	ConfigureLogging(LoggingConfig{Level: "debug", Format: "json", ServiceName: "ipo-gmp-tracker"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogging(NewDefaultUnifiedConfiguration().Logging)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogging(LoggingConfig{Level: "loud"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

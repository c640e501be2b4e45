package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestExtractGMPPercentage(t *testing.T) {
	utility := NewUtilityService()

	tests := []struct {
		text string
		want float64
	}{
		{"₹25 (30.86%)", 30.86},
		{"₹-5 (-3.5%)", -3.5},
		{"₹0 ( 0% )", 0},
		{"₹12 (+7%)", 7},
		{"--", 0},
		{"₹25", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.InDelta(t, tt.want, utility.ExtractGMPPercentage(tt.text), 1e-9)
		})
	}

	metrics := utility.GetServiceMetrics()
	assert.Equal(t, int64(len(tests)), metrics.TotalRequests)
	assert.Equal(t, int64(2), metrics.FailedRequests)
}

func TestParseShortDate(t *testing.T) {
	utility := NewUtilityService()

	got, ok := utility.ParseShortDate("14-Oct", day("2024-10-01"))
	assert.True(t, ok)
	assert.Equal(t, day("2024-10-14"), got)

	got, ok = utility.ParseShortDate("Closes 3-mar", day("2024-02-28"))
	assert.True(t, ok)
	assert.Equal(t, day("2024-03-03"), got)

	// January seen in December belongs to the next year
	got, ok = utility.ParseShortDate("5-Jan", day("2024-12-20"))
	assert.True(t, ok)
	assert.Equal(t, day("2025-01-05"), got)

	// a recently past date stays in the current year
	got, ok = utility.ParseShortDate("28-Nov", day("2024-12-02"))
	assert.True(t, ok)
	assert.Equal(t, day("2024-11-28"), got)

	_, ok = utility.ParseShortDate("TBA", day("2024-10-01"))
	assert.False(t, ok)

	_, ok = utility.ParseShortDate("31-Foo", day("2024-10-01"))
	assert.False(t, ok)
}

func TestNormalizeIPOName(t *testing.T) {
	utility := NewUtilityService()

	assert.Equal(t, "acme", utility.NormalizeIPOName("Acme Ltd. IPO (BSE SME)"))
	assert.Equal(t, "acme", utility.NormalizeIPOName("  ACME   Limited "))
	assert.Equal(t, "acme tech", utility.NormalizeIPOName("Acme-Tech Pvt Ltd NSE"))
	assert.Equal(t, utility.NormalizeIPOName("Acme Ltd IPO"), utility.NormalizeIPOName("ACME LTD. (NSE SME)"))
	assert.Equal(t, "ipo", utility.NormalizeIPOName("IPO"))
}

func TestIsNotAvailable(t *testing.T) {
	utility := NewUtilityService()
	for _, text := range []string{"", " - ", "N/A", "tba"} {
		assert.True(t, utility.IsNotAvailable(text), text)
	}
	assert.False(t, utility.IsNotAvailable("₹120"))
}

func TestUtilityProperties(t *testing.T) {
	utility := NewUtilityService()
	properties := gopter.NewProperties(nil)

	properties.Property("name normalization is idempotent", prop.ForAll(
		func(name string) bool {
			once := utility.NormalizeIPOName(name)
			return utility.NormalizeIPOName(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("parsed short dates never fall more than 180 days in the past", prop.ForAll(
		func(offset int) bool {
			today := day("2025-06-15")
			target := today.AddDate(0, 0, offset)
			parsed, ok := utility.ParseShortDate(target.Format("2-Jan"), today)
			return ok && !parsed.Before(today.AddDate(0, 0, -shortDateRolloverDays))
		},
		gen.IntRange(-170, 170),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

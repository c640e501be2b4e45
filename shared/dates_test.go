package shared

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, text string) time.Time {
	t.Helper()
	d, err := ParseDate(text)
	require.NoError(t, err)
	return d
}

func TestBusinessDaysBefore(t *testing.T) {
	tests := []struct {
		name string
		end  string
		k    int
		want []string
	}{
		{"thursday close", "2024-03-07", 2, []string{"2024-03-06", "2024-03-05"}},
		{"monday close skips weekend", "2024-03-11", 2, []string{"2024-03-08", "2024-03-07"}},
		{"tuesday close spans weekend", "2024-03-12", 2, []string{"2024-03-11", "2024-03-08"}},
		{"sunday close", "2024-03-10", 1, []string{"2024-03-08"}},
		{"zero", "2024-03-07", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want []time.Time
			for _, d := range tt.want {
				want = append(want, mustDate(t, d))
			}
			assert.Equal(t, want, BusinessDaysBefore(mustDate(t, tt.end), tt.k))
		})
	}
}

func TestDateOfKeepsLocalCalendarDay(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	late := time.Date(2024, 3, 7, 1, 0, 0, 0, kolkata) // still 2024-03-06 in UTC
	assert.Equal(t, mustDate(t, "2024-03-07"), DateOf(late))
	assert.Equal(t, "2024-03-07", FormatDate(DateOf(late)))
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("07-03-2024")
	assert.Error(t, err)
}

func TestBusinessDayProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	epoch := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("window holds k distinct business days strictly before end, newest first", prop.ForAll(
		func(offset, k int) bool {
			end := AddDays(epoch, offset)
			days := BusinessDaysBefore(end, k)
			if len(days) != k {
				return false
			}
			for i, d := range days {
				if !IsBusinessDay(d) || !d.Before(end) {
					return false
				}
				if i > 0 && !d.Before(days[i-1]) {
					return false
				}
			}
			// no business day is skipped between the oldest window day and end
			for d := AddDays(days[k-1], 1); d.Before(end); d = AddDays(d, 1) {
				if IsBusinessDay(d) && !containsDay(days, d) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 3650),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func containsDay(days []time.Time, day time.Time) bool {
	for _, d := range days {
		if d.Equal(day) {
			return true
		}
	}
	return false
}

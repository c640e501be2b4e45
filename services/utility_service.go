package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

var (
	gmpPercentageRegex = regexp.MustCompile(`\(\s*([+-]?\d+(?:\.\d+)?)\s*%\s*\)`)
	shortDateRegex     = regexp.MustCompile(`\d{1,2}-[A-Za-z]{3}`)
	nonAlnumRegex      = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
)

// nameSuffixes are removed from the end of a normalized name until none remain
var nameSuffixes = []string{" bse sme", " nse sme", " sme", " bse", " nse", " ipo", " ltd", " limited", " pvt", " private"}

// shortDateRolloverDays is how far in the past a d-Mon date may fall before it is read as next year
const shortDateRolloverDays = 180

// UtilityService provides text processing and normalization for source feed cells
type UtilityService struct {
	serviceMetrics *shared.ServiceMetrics
}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{
		serviceMetrics: shared.NewServiceMetrics("Utility_Service"),
	}
}

// NormalizeIPOName normalizes an IPO name for matching.
// Lowercases, drops punctuation, then strips trailing exchange tags and legal suffixes.
func (s *UtilityService) NormalizeIPOName(name string) string {
	normalized := strings.ToLower(s.CleanCellText(name))
	normalized = nonAlnumRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(whitespaceRegex.ReplaceAllString(normalized, " "))

	for trimmed := true; trimmed; {
		trimmed = false
		for _, suffix := range nameSuffixes {
			if strings.HasSuffix(normalized, suffix) {
				normalized = strings.TrimSuffix(normalized, suffix)
				trimmed = true
			}
		}
	}
	return normalized
}

// CleanCellText collapses whitespace in extracted cell text
func (s *UtilityService) CleanCellText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// IsNotAvailable reports whether a cell holds a placeholder instead of a value
func (s *UtilityService) IsNotAvailable(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "-", "--", "n/a", "na", "tba", "tbd":
		return true
	}
	return false
}

// ExtractGMPPercentage reads the percentage inside parentheses of a GMP cell,
// e.g. "₹25 (30.86%)" or "₹-5 (-3.5%)". Cells without one yield 0.
func (s *UtilityService) ExtractGMPPercentage(text string) float64 {
	start := time.Now()

	match := gmpPercentageRegex.FindStringSubmatch(text)
	if match == nil {
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		return 0
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		s.serviceMetrics.RecordRequest(false, time.Since(start))
		logrus.WithFields(logrus.Fields{"component": "UtilityService", "text": text}).Debug("Unparseable GMP percentage")
		return 0
	}

	s.serviceMetrics.RecordRequest(true, time.Since(start))
	return value
}

// ParseShortDate finds a d-Mon fragment such as "14-Oct" in text and resolves its year relative to today.
// Dates more than shortDateRolloverDays in the past belong to next year.
func (s *UtilityService) ParseShortDate(text string, today time.Time) (time.Time, bool) {
	fragment := shortDateRegex.FindString(text)
	if fragment == "" {
		return time.Time{}, false
	}

	day, month, _ := strings.Cut(fragment, "-")
	month = strings.ToUpper(month[:1]) + strings.ToLower(month[1:])
	parsed, err := time.Parse("2-Jan", day+"-"+month)
	if err != nil {
		return time.Time{}, false
	}

	today = shared.DateOf(today)
	date := time.Date(today.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(shared.AddDays(today, -shortDateRolloverDays)) {
		date = date.AddDate(1, 0, 0)
	}
	return date, true
}

// GetServiceMetrics returns the parse counters
func (s *UtilityService) GetServiceMetrics() *shared.ServiceMetrics {
	return s.serviceMetrics
}

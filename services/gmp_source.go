package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// SourceFeed yields one snapshot of the live IPO table per call
type SourceFeed interface {
	Fetch(ctx context.Context, today time.Time) ([]models.ScrapedIPO, error)
}

const (
	SourceModeBrowser = "browser"
	SourceModeStatic  = "static"
)

// Column positions of the investorgain report table
const (
	colName         = 0
	colGMP          = 1
	colPrice        = 2
	colSubscription = 3
	colOpen         = 7
	colClose        = 8
	minReportCells  = colClose + 1
)

const reportTableSelector = "#report_table"

// InvestorGainSource scrapes the live GMP report. Browser mode renders the page with
// headless Chrome; static mode fetches the server HTML with colly.
type InvestorGainSource struct {
	URL     string
	Mode    string
	Timeout time.Duration
	utility *UtilityService
}

func NewInvestorGainSource(cfg shared.ServiceConfig, mode string, utility *UtilityService) *InvestorGainSource {
	if utility == nil {
		utility = NewUtilityService()
	}
	return &InvestorGainSource{
		URL:     cfg.BaseURL,
		Mode:    mode,
		Timeout: cfg.HTTPRequestTimeout,
		utility: utility,
	}
}

// Fetch returns the parsed snapshot. A fetch failure is fatal to the caller's run;
// malformed rows are dropped and counted.
func (s *InvestorGainSource) Fetch(ctx context.Context, today time.Time) ([]models.ScrapedIPO, error) {
	start := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"component": "InvestorGainSource",
		"mode":      s.Mode,
		"url":       s.URL,
	})
	logger.Info("Fetching IPO GMP report")

	var tableHTML string
	var err error
	if s.Mode == SourceModeStatic {
		tableHTML, err = s.fetchStaticTable(ctx)
	} else {
		tableHTML, err = s.fetchRenderedTable(ctx)
	}
	if err != nil {
		return nil, shared.NewRunError(shared.ErrorCategoryNetwork, "SOURCE_FETCH_FAILED",
			"failed to fetch IPO GMP report", "investorgain-source", "Fetch", err)
	}

	ipos, dropped, err := ParseGMPTable(strings.NewReader(tableHTML), today, s.utility)
	if err != nil {
		return nil, shared.NewRunError(shared.ErrorCategoryProcessing, "SOURCE_PARSE_FAILED",
			"failed to parse IPO GMP report", "investorgain-source", "Fetch", err)
	}

	logger.WithFields(logrus.Fields{
		"ipos":     len(ipos),
		"dropped":  dropped,
		"duration": time.Since(start),
	}).Info("IPO GMP report parsed")
	return ipos, nil
}

func (s *InvestorGainSource) fetchRenderedTable(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(shared.BrowserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.Timeout)
	defer cancelTimeout()

	var tableHTML string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(s.URL),
		chromedp.WaitVisible(reportTableSelector+" tbody tr", chromedp.ByQuery),
		chromedp.OuterHTML(reportTableSelector, &tableHTML, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp execution failed: %w", err)
	}
	return tableHTML, nil
}

func (s *InvestorGainSource) fetchStaticTable(ctx context.Context) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.Timeout)

	c.OnRequest(func(r *colly.Request) {
		shared.SetBrowserLikeHeaders(r.Headers, "text/html,application/xhtml+xml")
	})

	var tableHTML string
	var scrapeErr error
	c.OnHTML(reportTableSelector, func(e *colly.HTMLElement) {
		html, err := goquery.OuterHtml(e.DOM)
		if err != nil {
			scrapeErr = err
			return
		}
		tableHTML = html
	})
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(s.URL); err != nil && scrapeErr == nil {
		scrapeErr = err
	}
	if scrapeErr != nil {
		return "", scrapeErr
	}
	if tableHTML == "" {
		return "", fmt.Errorf("report table %s not present in static page", reportTableSelector)
	}
	return tableHTML, nil
}

// ParseGMPTable extracts IPO rows from report table HTML. Rows with too few cells,
// no name or no parseable closing date are dropped; the count of dropped rows is returned.
func ParseGMPTable(r io.Reader, today time.Time, utility *UtilityService) ([]models.ScrapedIPO, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, err
	}

	rows := doc.Find(reportTableSelector + " tr")
	if rows.Length() == 0 {
		rows = doc.Find("table tr")
	}

	var ipos []models.ScrapedIPO
	dropped := 0

	rows.Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		if cells.Length() < minReportCells {
			dropped++
			return
		}

		cell := func(idx int) string {
			return utility.CleanCellText(cells.Eq(idx).Text())
		}
		// placeholders such as "-" or "TBA" are stored empty and rendered as "-"
		value := func(idx int) string {
			text := cell(idx)
			if utility.IsNotAvailable(text) {
				return ""
			}
			return text
		}

		name := cell(colName)
		endRaw := cell(colClose)
		endDate, ok := utility.ParseShortDate(endRaw, today)
		if name == "" || !ok {
			dropped++
			logrus.WithFields(logrus.Fields{
				"component": "InvestorGainSource",
				"row":       i,
				"name":      name,
				"end":       endRaw,
			}).Debug("Dropping malformed report row")
			return
		}

		gmpText := cell(colGMP)
		ipo := models.ScrapedIPO{
			Name:          name,
			GMPText:       gmpText,
			GMPPercentage: utility.ExtractGMPPercentage(gmpText),
			Price:         value(colPrice),
			Subscription:  value(colSubscription),
			EndDate:       endDate,
			StartRaw:      cell(colOpen),
			EndRaw:        endRaw,
		}
		if startDate, ok := utility.ParseShortDate(ipo.StartRaw, today); ok {
			ipo.StartDate = &startDate
		}
		ipos = append(ipos, ipo)
	})

	return ipos, dropped, nil
}

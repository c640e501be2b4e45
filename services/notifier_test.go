package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServiceConfig(baseURL string, retries int) shared.ServiceConfig {
	return shared.ServiceConfig{
		BaseURL:            baseURL,
		HTTPRequestTimeout: 5 * time.Second,
		RequestRateLimit:   time.Millisecond,
		MaxRetryAttempts:   retries,
	}
}

func sampleAlert() models.AlertMessage {
	start := day("2024-03-05")
	return models.AlertMessage{
		Kind: models.AlertClosingTomorrow,
		IPO: models.IPO{
			Name: "Acme Ltd", Price: "₹100", Subscription: "12.5x",
			StartDate: &start, EndDate: day("2024-03-07"), Status: models.StatusTracking,
		},
		Samples: []models.GMPSample{
			{GMP: 6, RecordedOn: day("2024-03-06")},
			{GMP: 8, RecordedOn: day("2024-03-05")},
		},
		AverageGMP:     7,
		Recommendation: models.RecommendationProceed,
	}
}

func TestTelegramNotifierPostsMarkdownMessage(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	factory := shared.NewHTTPClientFactory(5 * time.Second)
	defer factory.CleanupAllClients()

	notifier := NewTelegramNotifier("TOKEN", "@ipo_alerts", testServiceConfig(server.URL+"/", 0), factory)
	assert.True(t, notifier.Deliver(context.Background(), sampleAlert()))

	assert.Equal(t, "@ipo_alerts", body["chat_id"])
	assert.Equal(t, "Markdown", body["parse_mode"])
	assert.Contains(t, body["text"], "Acme Ltd")
	assert.Contains(t, body["text"], "Average GMP: 7.00%")
}

func TestTelegramNotifierReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Internal Server Error"}`))
	}))
	defer server.Close()

	notifier := NewTelegramNotifier("TOKEN", "1", testServiceConfig(server.URL, 0), shared.NewHTTPClientFactory(5*time.Second))
	assert.False(t, notifier.Deliver(context.Background(), sampleAlert()))
}

func TestTelegramNotifierUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	notifier := NewTelegramNotifier("TOKEN", "1", testServiceConfig(url, 0), shared.NewHTTPClientFactory(time.Second))
	assert.False(t, notifier.Deliver(context.Background(), sampleAlert()))
}

func TestWebhookNotifierSucceedsWhenAnyRecipientAccepts(t *testing.T) {
	var received models.WebhookPayload
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer rejecting.Close()

	notifier := NewWebhookNotifier([]string{rejecting.URL, ok.URL}, testServiceConfig("", 0), shared.NewHTTPClientFactory(5*time.Second))
	assert.True(t, notifier.Deliver(context.Background(), sampleAlert()))

	assert.Equal(t, "closing_tomorrow", received.AlertType)
	assert.Equal(t, "Acme Ltd", received.IPOName)
	assert.InDelta(t, 7.0, received.AvgGMP, 1e-9)
	require.Len(t, received.GMPHistory, 2)
	assert.Equal(t, "2024-03-05", received.GMPHistory[0].Date)

	onlyRejecting := NewWebhookNotifier([]string{rejecting.URL}, testServiceConfig("", 0), shared.NewHTTPClientFactory(5*time.Second))
	assert.False(t, onlyRejecting.Deliver(context.Background(), sampleAlert()))
}

func TestWebhookNotifierRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier([]string{server.URL}, testServiceConfig("", 2), shared.NewHTTPClientFactory(5*time.Second))
	assert.True(t, notifier.Deliver(context.Background(), sampleAlert()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCompositeNotifier(t *testing.T) {
	failing := &recordingNotifier{result: false}
	working := &recordingNotifier{result: true}

	assert.True(t, NewCompositeNotifier(failing, working).Deliver(context.Background(), sampleAlert()))
	assert.Equal(t, 1, failing.count(), "every channel is attempted")
	assert.Equal(t, 1, working.count())

	assert.False(t, NewCompositeNotifier(failing).Deliver(context.Background(), sampleAlert()))
	assert.False(t, NewCompositeNotifier().Deliver(context.Background(), sampleAlert()))
}

func TestFormatAlertText(t *testing.T) {
	text := FormatAlertText(sampleAlert())
	assert.Contains(t, text, "CLOSING TOMORROW")
	assert.Contains(t, text, "📌 Acme Ltd\n")
	assert.Contains(t, text, "📅 Start: 2024-03-05")
	assert.Contains(t, text, "Recommendation: PROCEED")
	assert.Less(t, strings.Index(text, "2024-03-05: 8.00%"), strings.Index(text, "2024-03-06: 6.00%"), "history is oldest first")

	today := sampleAlert()
	today.Kind = models.AlertClosingToday
	today.IPO.StartDate = nil
	today.IPO.Price = ""
	text = FormatAlertText(today)
	assert.Contains(t, text, "CLOSING TODAY")
	assert.Contains(t, text, "📅 Start: -")
	assert.Contains(t, text, "💰 Price: -")

	assert.Equal(t, GreetingText, FormatAlertText(NewGreetingMessage("")))
	assert.Equal(t, "hello", FormatAlertText(NewGreetingMessage("hello")))
}

func TestFormatAlertTextEscapesMarkdown(t *testing.T) {
	msg := sampleAlert()
	msg.IPO.Name = "Star_Cement *SME* `X` [A]"
	msg.IPO.Subscription = "1.2x_QIB"

	text := FormatAlertText(msg)
	assert.Contains(t, text, "📌 Star\\_Cement \\*SME\\* \\`X\\` \\[A]\n")
	assert.Contains(t, text, `📊 Subscription: 1.2x\_QIB`)

	payload := BuildWebhookPayload(msg)
	assert.Equal(t, "Star_Cement *SME* `X` [A]", payload.IPOName, "webhook JSON carries the raw name")
}

func TestBuildWebhookPayloadForFreeText(t *testing.T) {
	payload := BuildWebhookPayload(NewGreetingMessage("hello"))
	assert.Equal(t, "message", payload.AlertType)
	assert.Equal(t, "hello", payload.Text)
	assert.NotNil(t, payload.GMPHistory)
}

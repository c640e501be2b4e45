package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// ErrAlertRunInProgress is returned when a second alert run is requested while one is active
var ErrAlertRunInProgress = errors.New("alert run already in progress")

// AlertJob runs the decision engine for today
type AlertJob struct {
	runGuard
	Engine   *services.AlertEngine
	Location *time.Location
}

func NewAlertJob(engine *services.AlertEngine, loc *time.Location) *AlertJob {
	return &AlertJob{Engine: engine, Location: loc}
}

func (j *AlertJob) Name() string { return "alert" }

func (j *AlertJob) Run(ctx context.Context) error {
	_, err := j.RunWithSummary(ctx)
	if errors.Is(err, ErrAlertRunInProgress) {
		return nil
	}
	return err
}

// RunWithSummary runs one pass and returns its counters
func (j *AlertJob) RunWithSummary(ctx context.Context) (services.RunSummary, error) {
	if !j.acquire(j.Name()) {
		return services.RunSummary{}, ErrAlertRunInProgress
	}
	defer j.release()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()
	summary, err := j.Engine.Run(ctx, shared.TodayIn(j.Location))
	if err != nil {
		if shared.IsFatalRunError(err) {
			logrus.WithError(err).Error("Alert run aborted")
		}
		return summary, err
	}

	logCompletion(j.Name(), start, logrus.Fields{
		"evaluated": summary.Evaluated,
		"errors":    summary.Errors,
	})
	j.Engine.Metrics().LogSummary()
	return summary, nil
}

// SendGreeting posts a free-form message through the engine's notifier
func (j *AlertJob) SendGreeting(ctx context.Context, text string) error {
	if !j.Engine.Notifier.Deliver(ctx, services.NewGreetingMessage(text)) {
		return shared.NewRunError(shared.ErrorCategoryNotification, "GREETING_NOT_DELIVERED",
			"greeting message was not delivered", "alert-job", "SendGreeting", nil)
	}
	logrus.Info("Greeting message sent")
	return nil
}

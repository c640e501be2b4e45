package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one schedulable batch operation
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// runGuard keeps a job from running twice at once when the scheduler and
// the admin API trigger it together
type runGuard struct {
	mu        sync.Mutex
	isRunning bool
}

func (g *runGuard) acquire(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isRunning {
		logrus.WithField("job", name).Warn("Job already running, skipping")
		return false
	}
	g.isRunning = true
	return true
}

func (g *runGuard) release() {
	g.mu.Lock()
	g.isRunning = false
	g.mu.Unlock()
}

// IsRunning reports whether the job currently holds the guard
func (g *runGuard) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isRunning
}

func logCompletion(name string, start time.Time, fields logrus.Fields) {
	fields["job"] = name
	fields["duration"] = time.Since(start)
	logrus.WithFields(fields).Info("Job completed")
}

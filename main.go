package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fenilmodi00/ipo-gmp-tracker/config"
	"github.com/fenilmodi00/ipo-gmp-tracker/jobs"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	cfg := config.LoadConfig()
	shared.ConfigureLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	app.Name = "ipo-gmp-tracker"
	app.Usage = "track IPO grey market premiums and alert before subscriptions close"
	app.Commands = []cli.Command{
		{
			Name:  "track",
			Usage: "register newly listed IPOs from the GMP report",
			Action: func(c *cli.Context) error {
				return runJob(ctx, cfg, false, func(a *application) jobs.Job { return a.trackJob })
			},
		},
		{
			Name:  "collect",
			Usage: "record today's GMP for every tracked IPO",
			Action: func(c *cli.Context) error {
				return runJob(ctx, cfg, false, func(a *application) jobs.Job { return a.collectJob })
			},
		},
		{
			Name:  "alert",
			Usage: "send closing tomorrow and closing today alerts",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "greeting", Usage: "send the channel welcome message instead of running alerts"},
				cli.StringFlag{Name: "message", Usage: "custom text for --greeting"},
			},
			Action: func(c *cli.Context) error {
				a, err := newApplication(ctx, cfg, true)
				if err != nil {
					return err
				}
				defer a.close()

				if c.Bool("greeting") {
					return a.alertJob.SendGreeting(ctx, c.String("message"))
				}
				return a.alertJob.Run(ctx)
			},
		},
		{
			Name:  "cleanup",
			Usage: "delete IPOs past the retention window",
			Action: func(c *cli.Context) error {
				return runJob(ctx, cfg, false, func(a *application) jobs.Job { return a.cleanupJob })
			},
		},
		{
			Name:  "export",
			Usage: "write all IPOs and their GMP history to a spreadsheet",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "path", Value: cfg.ExportPath, Usage: "output .xlsx file"},
			},
			Action: func(c *cli.Context) error {
				cfg.ExportPath = c.String("path")
				return runJob(ctx, cfg, false, func(a *application) jobs.Job { return a.exportJob })
			},
		},
		{
			Name:  "serve",
			Usage: "serve the read-only inspection API",
			Action: func(c *cli.Context) error {
				a, err := newApplication(ctx, cfg, false)
				if err != nil {
					return err
				}
				defer a.close()
				return serve(ctx, a)
			},
		},
		{
			Name:  "schedule",
			Usage: "run every job on its cron schedule until interrupted",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "serve", Usage: "also serve the inspection API"},
			},
			Action: func(c *cli.Context) error {
				a, err := newApplication(ctx, cfg, true)
				if err != nil {
					return err
				}
				defer a.close()
				return schedule(ctx, a, c.Bool("serve"))
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) {
			serviceErr.LogError()
		}
		if shared.IsConfigurationError(err) {
			logrus.Fatal("Configuration error, aborting before any IPO was processed")
		}
		logrus.WithError(err).Fatal("Command failed")
	}
}

func runJob(ctx context.Context, cfg *config.Config, requireNotifier bool, pick func(*application) jobs.Job) error {
	a, err := newApplication(ctx, cfg, requireNotifier)
	if err != nil {
		return err
	}
	defer a.close()
	return pick(a).Run(ctx)
}

func serve(ctx context.Context, a *application) error {
	server := a.newServer()
	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			logrus.WithError(err).Warn("Server shutdown failed")
		}
	}()

	logrus.Infof("Server starting on port %s", a.cfg.ServerPort)
	return server.Listen(":" + a.cfg.ServerPort)
}

// schedule triggers each job from cron. SkipIfStillRunning serializes runs of the same job.
func schedule(ctx context.Context, a *application, withServer bool) error {
	cronLogger := cron.PrintfLogger(logrus.StandardLogger())
	scheduler := cron.New(
		cron.WithLocation(a.location),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	entries := []struct {
		spec string
		job  jobs.Job
	}{
		{a.cfg.TrackCron, a.trackJob},
		{a.cfg.CollectCron, a.collectJob},
		{a.cfg.AlertCron, a.alertJob},
		{a.cfg.CleanupCron, a.cleanupJob},
	}
	for _, entry := range entries {
		job := entry.job
		if _, err := scheduler.AddFunc(entry.spec, func() {
			if err := job.Run(ctx); err != nil {
				logrus.WithError(err).WithField("job", job.Name()).Error("Scheduled job failed")
			}
		}); err != nil {
			return shared.NewConfigurationError("INVALID_CRON", "invalid schedule for "+job.Name()+": "+err.Error())
		}
		logrus.WithFields(logrus.Fields{"job": job.Name(), "cron": entry.spec}).Info("Job scheduled")
	}

	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
		logrus.Info("Scheduler stopped")
	}()

	if withServer {
		return serve(ctx, a)
	}
	<-ctx.Done()
	return nil
}

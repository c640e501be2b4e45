package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/sirupsen/logrus"
)

// ExportJob writes the human-facing workbook
type ExportJob struct {
	runGuard
	Exporter *services.SpreadsheetExporter
	Path     string
}

func NewExportJob(exporter *services.SpreadsheetExporter, path string) *ExportJob {
	return &ExportJob{Exporter: exporter, Path: path}
}

func (j *ExportJob) Name() string { return "export" }

func (j *ExportJob) Run(ctx context.Context) error {
	if !j.acquire(j.Name()) {
		return nil
	}
	defer j.release()

	start := time.Now()
	rows, err := j.Exporter.Export(ctx, j.Path)
	if err != nil {
		logrus.WithError(err).Error("Export Job failed")
		return err
	}

	logCompletion(j.Name(), start, logrus.Fields{"rows": rows, "path": j.Path})
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/chilam/strongpool/internal/pipeline"
	"github.com/chilam/strongpool/pkg/logger"
)

// ScanJob runs one strategy's signal-pool pipeline once per trading day,
// after the market close and the upstream's daily publication window.
type ScanJob struct {
	name     string
	schedule string
	pipe     *pipeline.Pipeline
	logger   *logger.Logger
}

// NewScanJob creates a scan job. schedule is a cron expression with
// seconds; the default fires at 17:30 on weekdays.
func NewScanJob(strategyName, schedule string, pipe *pipeline.Pipeline, log *logger.Logger) *ScanJob {
	if schedule == "" {
		schedule = "0 30 17 * * 1-5"
	}
	return &ScanJob{
		name:     "scan_" + strategyName,
		schedule: schedule,
		pipe:     pipe,
		logger:   log.WithField("job", "scan_"+strategyName),
	}
}

// Name returns the job name.
func (j *ScanJob) Name() string {
	return j.name
}

// Schedule returns the cron schedule expression.
func (j *ScanJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline against today's date.
func (j *ScanJob) Run(ctx context.Context) error {
	summary, err := j.pipe.Run(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("scheduled scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"trading_date": summary.TradingDate.Format("2006-01-02"),
		"qualified":    summary.Qualified,
		"new_entries":  summary.NewEntries,
	}).Info("Scheduled scan completed")

	return nil
}

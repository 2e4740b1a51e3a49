package scheduler

import (
	"context"

	"github.com/yucheng-lin/twscan/internal/scan"
)

// ScanJob runs one scan cycle on the configured cron schedule.
// The pipeline itself decides whether the market is open and which
// profile applies, so the job never forces a run.
type ScanJob struct {
	pipeline *scan.Pipeline
	schedule string
}

// NewScanJob creates a scan job with the given cron schedule.
func NewScanJob(pipeline *scan.Pipeline, schedule string) *ScanJob {
	return &ScanJob{pipeline: pipeline, schedule: schedule}
}

func (j *ScanJob) Name() string { return "scan-cycle" }

func (j *ScanJob) Schedule() string { return j.schedule }

func (j *ScanJob) Run(ctx context.Context) error {
	_, err := j.pipeline.RunCycle(ctx, "", false)
	return err
}

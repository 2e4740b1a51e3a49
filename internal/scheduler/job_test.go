package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yucheng-lin/twscan/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	err      error
	ran      chan struct{}
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) error {
	if j.ran != nil {
		j.ran <- struct{}{}
	}
	return j.err
}

func TestJobHistoryTrimming(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: fmt.Sprintf("run-%d", i), Success: true})
	}

	if len(h.Results) != 100 {
		t.Fatalf("history holds %d results, want 100", len(h.Results))
	}
	if h.Results[0].JobName != "run-50" {
		t.Errorf("oldest kept = %q, want run-50", h.Results[0].JobName)
	}

	latest := h.LatestResults(3)
	if len(latest) != 3 || latest[2].JobName != "run-149" {
		t.Errorf("LatestResults = %+v", latest)
	}
}

func TestJobHistorySuccessRate(t *testing.T) {
	h := &JobHistory{}
	if h.SuccessRate() != 0.0 {
		t.Error("empty history rate must be 0")
	}

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})

	if rate := h.SuccessRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("rate = %v, want 2/3", rate)
	}
}

func TestSchedulerAddAndRunJob(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)

	job := &fakeJob{name: "scan-cycle", schedule: "0 0/10 9-13 * * MON-FRI", ran: make(chan struct{}, 1)}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob(job); err == nil {
		t.Fatal("duplicate job accepted")
	}

	if err := s.RunJob("scan-cycle"); err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	if err := s.RunJob("missing"); err == nil {
		t.Error("unknown job accepted")
	}
}

func TestSchedulerRecordsFailure(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)

	job := &fakeJob{name: "failing", schedule: "@daily", err: errors.New("boom"), ran: make(chan struct{}, 1)}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	if err := s.RunJob("failing"); err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	<-job.ran

	// runJob records asynchronously after Run returns
	deadline := time.Now().Add(2 * time.Second)
	for {
		history, err := s.GetJobHistory("failing")
		if err != nil {
			t.Fatalf("GetJobHistory: %v", err)
		}
		if len(history.Results) > 0 {
			r := history.Results[0]
			if r.Success || r.Error != "boom" {
				t.Errorf("result = %+v", r)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("result never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop(), time.UTC)
	job := &fakeJob{name: "bad", schedule: "not a cron"}
	if err := s.AddJob(job); err == nil {
		t.Fatal("invalid schedule accepted")
	}
}

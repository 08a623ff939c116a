// Package feedback delivers passage telemetry to the hazard backend off the
// position-fix path, so a slow or failing network call never stalls
// proximity detection.
package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jobin2005/roadgaurd-dark/internal/repository"
)

// PassageJob is one hazard passage to report.
type PassageJob struct {
	JourneyID  string
	HazardID   string
	TravelerID string
	At         time.Time
}

// PassageReporter is the outbound backend call.
type PassageReporter interface {
	ReportPassage(ctx context.Context, hazardID, travelerID string) error
}

// Dispatcher fans passage jobs out to a fixed pool of workers. Failures are
// logged and never retried; passages are non-critical telemetry.
type Dispatcher struct {
	numWorkers int
	jobs       chan PassageJob
	reporter   PassageReporter
	store      repository.JourneyStore
	wg         sync.WaitGroup
}

// NewDispatcher creates a dispatcher. store may be nil when no local
// journal is configured.
func NewDispatcher(numWorkers, bufferSize int, reporter PassageReporter, store repository.JourneyStore) *Dispatcher {
	return &Dispatcher{
		numWorkers: numWorkers,
		jobs:       make(chan PassageJob, bufferSize),
		reporter:   reporter,
		store:      store,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	for i := 1; i <= d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job PassageJob) {
	if d.reporter != nil {
		if err := d.reporter.ReportPassage(ctx, job.HazardID, job.TravelerID); err != nil {
			slog.Error("passage report failed", "hazard_id", job.HazardID, "error", err)
		}
	}

	if d.store != nil {
		if err := d.store.RecordPassage(ctx, &repository.PassageRecord{
			JourneyID: job.JourneyID,
			HazardID:  job.HazardID,
			At:        job.At,
		}); err != nil {
			slog.Error("passage journal write failed", "hazard_id", job.HazardID, "error", err)
		}
	}
}

// Submit enqueues a job without blocking. When the buffer is full the job
// is dropped; losing a passage report is preferable to stalling the fix
// handler.
func (d *Dispatcher) Submit(job PassageJob) {
	select {
	case d.jobs <- job:
	default:
		slog.Warn("passage queue full, dropping report", "hazard_id", job.HazardID)
	}
}

func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

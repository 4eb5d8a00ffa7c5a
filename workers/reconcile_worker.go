// workers/reconcile_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"trivia-progression-service/services"

	"github.com/go-co-op/gocron/v2"
)

// CounterReconcileWorker periodically re-derives the cached lifetime counters
// on UserProgress from the ground-truth activity tables. The cached counters
// are best-effort; solve/comment/post achievement conditions already read the
// tables, this keeps the displayed numbers honest too.
type CounterReconcileWorker struct {
	progression *services.ProgressionService
	interval    time.Duration
	batchSize   int
}

func NewCounterReconcileWorker(progression *services.ProgressionService) *CounterReconcileWorker {
	return &CounterReconcileWorker{
		progression: progression,
		interval:    1 * time.Hour,
		batchSize:   200,
	}
}

func (w *CounterReconcileWorker) Start(sched gocron.Scheduler) {
	log.Println("🔁 Starting Counter Reconcile Worker (activity tables → user_progress)…")
	_, err := sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			repaired, err := w.progression.ReconcileAllCounters(ctx, w.batchSize)
			if err != nil {
				log.Printf("⚠️ [RECONCILE] sweep failed: %v", err)
				return
			}
			if repaired > 0 {
				log.Printf("🔧 [RECONCILE] repaired %d drifted progress rows", repaired)
			}
		}),
	)
	if err != nil {
		log.Printf("⚠️ [RECONCILE] failed to schedule job: %v", err)
	}
}

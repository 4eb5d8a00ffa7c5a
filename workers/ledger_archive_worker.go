// workers/ledger_archive_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trivia-progression-service/store"
	"trivia-progression-service/utils"

	"github.com/go-co-op/gocron/v2"
)

// LedgerArchiveWorker moves aged XP-event ledger rows out to R2 as NDJSON
// batches. The engine never reads the ledger back — it exists for analytics —
// so old rows only need to survive as objects, not as hot table data.
type LedgerArchiveWorker struct {
	store     store.ProgressStore
	interval  time.Duration
	retention time.Duration
	batchSize int
}

func NewLedgerArchiveWorker(st store.ProgressStore) *LedgerArchiveWorker {
	return &LedgerArchiveWorker{
		store:     st,
		interval:  24 * time.Hour,
		retention: 30 * 24 * time.Hour,
		batchSize: 1000,
	}
}

func (w *LedgerArchiveWorker) Start(sched gocron.Scheduler) {
	log.Println("🔁 Starting Ledger Archive Worker (xp_events → R2)…")
	_, err := sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()
			if err := w.archiveBatches(ctx); err != nil {
				log.Printf("⚠️ [LEDGER_ARCHIVE] run failed: %v", err)
			}
		}),
	)
	if err != nil {
		log.Printf("⚠️ [LEDGER_ARCHIVE] failed to schedule job: %v", err)
	}
}

func (w *LedgerArchiveWorker) archiveBatches(ctx context.Context) error {
	cutoff := time.Now().Add(-w.retention)
	for {
		events, err := w.store.ListUnarchivedXPEvents(ctx, cutoff, w.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		ids := make([]string, 0, len(events))
		for _, ev := range events {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			ids = append(ids, ev.ID)
		}

		key := fmt.Sprintf("xp-events/%s/%s.ndjson",
			time.Now().UTC().Format("2006-01-02"), events[0].ID)
		if err := utils.UploadBytesToR2(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
			return err
		}
		// Mark only after the object landed — a crash re-uploads, never loses.
		if err := w.store.MarkXPEventsArchived(ctx, ids); err != nil {
			return err
		}
		log.Printf("📦 [LEDGER_ARCHIVE] archived %d events → %s", len(ids), key)

		if len(events) < w.batchSize {
			return nil
		}
	}
}

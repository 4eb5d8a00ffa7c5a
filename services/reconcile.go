package services

import (
	"context"
	"errors"
	"log"

	"trivia-progression-service/models"
)

// ReconcileCounters re-derives the cached lifetime activity counters from the
// ground-truth tables and repairs the progress row if they drifted. Runs under
// the same per-user lock as ApplyEvent so it never races a live event.
// Returns true if a repair was written.
func (s *ProgressionService) ReconcileCounters(ctx context.Context, externalUserID string) (bool, error) {
	lock := s.userLock(externalUserID)
	lock.Lock()
	defer lock.Unlock()

	prog, err := s.Store.GetProgress(ctx, externalUserID)
	if err != nil {
		return false, err
	}
	counts, err := s.Store.CountActivity(ctx, externalUserID)
	if err != nil {
		return false, err
	}

	drifted := prog.TotalSolves != counts.Solves ||
		prog.NoHintSolves != counts.NoHintSolves ||
		prog.Under3QSolves != counts.Under3QSolves ||
		prog.TotalComments != counts.Comments ||
		prog.TotalPosts != counts.Posts
	if !drifted {
		return false, nil
	}

	log.Printf("🔧 Counter drift for %s: solves %d→%d, noHint %d→%d, under3q %d→%d, comments %d→%d, posts %d→%d",
		externalUserID,
		prog.TotalSolves, counts.Solves,
		prog.NoHintSolves, counts.NoHintSolves,
		prog.Under3QSolves, counts.Under3QSolves,
		prog.TotalComments, counts.Comments,
		prog.TotalPosts, counts.Posts)

	prog.TotalSolves = counts.Solves
	prog.NoHintSolves = counts.NoHintSolves
	prog.Under3QSolves = counts.Under3QSolves
	prog.TotalComments = counts.Comments
	prog.TotalPosts = counts.Posts

	if err := s.Store.SaveProgress(ctx, prog); err != nil {
		return false, err
	}
	return true, nil
}

// ReconcileAllCounters walks every progress row in batches.
func (s *ProgressionService) ReconcileAllCounters(ctx context.Context, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 200
	}
	repaired := 0
	for offset := 0; ; offset += batchSize {
		batch, err := s.Store.ListProgressBatch(ctx, offset, batchSize)
		if err != nil {
			return repaired, err
		}
		if len(batch) == 0 {
			return repaired, nil
		}
		for i := range batch {
			fixed, err := s.ReconcileCounters(ctx, batch[i].ExternalUserID)
			if err != nil {
				if errors.Is(err, models.ErrProgressNotFound) {
					continue
				}
				return repaired, err
			}
			if fixed {
				repaired++
			}
		}
	}
}

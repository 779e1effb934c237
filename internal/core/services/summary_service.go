package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/chapterelect/elections/internal/core/ports"
)

type summaryService struct {
	resultsRepo ports.ResultsRepository
}

func NewSummaryService(resultsRepo ports.ResultsRepository) ports.SummaryService {
	return &summaryService{
		resultsRepo: resultsRepo,
	}
}

// RefreshAllTallies re-derives the cached tally rows for every election that
// has not been frozen yet. Frozen snapshots are final and never recomputed.
func (s *summaryService) RefreshAllTallies(ctx context.Context) error {
	ids, err := s.resultsRepo.ListUnfrozenElectionIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list elections: %w", err)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(electionID [16]byte) { // passing ID by value (uuid.UUID is [16]byte) to avoid closure issues
			defer wg.Done()
			if err := s.resultsRepo.RefreshTallies(ctx, electionID); err != nil {
				errChan <- fmt.Errorf("failed to refresh tallies for election %s: %w", electionID, err)
			}
		}(id)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	return nil
}

package srm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PeriodFetcher fetches and parses the absence details of one period.
//
// note: fault injection point
type PeriodFetcher interface {
	FetchPeriod(ctx context.Context, period PeriodKey) ([]AbsenceRecord, error)
}

// AggregateAbsences fetches every period concurrently and concatenates the results in
// the order of periods, whatever order the fetches complete in. limit bounds the
// number of fetches in flight, limit <= 0 means unbounded.
//
// If any fetch fails, the remaining fetches are cancelled and no records are returned.
func AggregateAbsences(ctx context.Context, fetcher PeriodFetcher, periods []PeriodKey, limit int) ([]AbsenceRecord, error) {
	results := make([][]AbsenceRecord, len(periods))

	group, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for i, period := range periods {
		group.Go(func() error {
			records, err := fetcher.FetchPeriod(groupCtx, period)
			if err != nil {
				return fmt.Errorf("%s: %w", period, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAggregationFailure, err)
	}

	total := 0
	for _, records := range results {
		total += len(records)
	}
	flattened := make([]AbsenceRecord, 0, total)
	for _, records := range results {
		flattened = append(flattened, records...)
	}
	return flattened, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

const (
	flakyBatchSize   = 500
	flakyLookback    = 90 * 24 * time.Hour
	flakyGroupWindow = 24 * time.Hour
	flakyPassTimeout = 120 * time.Second
)

// FlakyService flags CI runs as flaky. A commit's runs are flaky when the
// same commit both passed and failed within 24 hours of its earliest run;
// every run inside that window is flagged, successes included, so the flaky
// rate counts the whole unstable group.
type FlakyService struct {
	runs   driven.CIRunStore
	logger *slog.Logger
	now    func() time.Time
}

func NewFlakyService(runs driven.CIRunStore, logger *slog.Logger) *FlakyService {
	return &FlakyService{
		runs:   runs,
		logger: logger,
		now:    time.Now,
	}
}

// Detect scans unflagged completed runs from the last 90 days in batches and
// marks the flaky ones. The pass is bounded by a 120 second budget; when the
// budget runs out the runs flagged so far are kept and the count is returned
// without error. Flagging only ever sets the flag, so a later pass picks up
// where a truncated one stopped.
func (s *FlakyService) Detect(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, flakyPassTimeout)
	defer cancel()

	since := s.now().Add(-flakyLookback)
	flagged := 0
	offset := 0

	for {
		batch, err := s.runs.ListUnflagged(ctx, since, flakyBatchSize, offset)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				s.logger.Warn("flaky detection pass timed out", "flagged", flagged)
				return flagged, nil
			}
			return flagged, fmt.Errorf("listing unflagged runs: %w", err)
		}
		if len(batch) == 0 {
			return flagged, nil
		}

		flakyIDs := detectFlakyInBatch(batch)
		if len(flakyIDs) > 0 {
			if err := s.runs.MarkFlaky(ctx, flakyIDs); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					s.logger.Warn("flaky detection pass timed out", "flagged", flagged)
					return flagged, nil
				}
				return flagged, fmt.Errorf("marking flaky runs: %w", err)
			}
			flagged += len(flakyIDs)
		}

		if len(batch) < flakyBatchSize {
			return flagged, nil
		}
		// Newly flagged rows drop out of the unflagged set, so advance by
		// the number of rows that remain unflagged in this batch.
		offset += len(batch) - len(flakyIDs)
	}
}

// detectFlakyInBatch groups completed runs by commit and, for each commit with
// both a success and a failure inside the 24 hour window anchored at its
// earliest run, returns the IDs of every run in that window.
func detectFlakyInBatch(batch []model.CIRun) []string {
	byCommit := make(map[string][]model.CIRun)
	for _, run := range batch {
		if run.Status != model.CIStatusCompleted {
			continue
		}
		if run.CommitSHA == nil || *run.CommitSHA == "" {
			continue
		}
		byCommit[*run.CommitSHA] = append(byCommit[*run.CommitSHA], run)
	}

	var flaky []string
	for _, group := range byCommit {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].StartedAt.Before(group[j].StartedAt)
		})

		windowEnd := group[0].StartedAt.Add(flakyGroupWindow)
		hasSuccess := false
		hasFailure := false
		var windowed []string
		for _, run := range group {
			if run.StartedAt.After(windowEnd) {
				continue
			}
			windowed = append(windowed, run.RunID)
			switch {
			case run.Conclusion == model.CIConclusionSuccess:
				hasSuccess = true
			case run.Conclusion.IsFailure():
				hasFailure = true
			}
		}
		if hasSuccess && hasFailure {
			flaky = append(flaky, windowed...)
		}
	}
	return flaky
}

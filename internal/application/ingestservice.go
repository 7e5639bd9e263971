// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

const (
	recencyLookback    = 90 * 24 * time.Hour
	projectConcurrency = 3
	repoConcurrency    = 10
	projectTimeout     = 5 * time.Minute
)

// IngestService pulls pull requests and CI runs from the upstream platform
// into the local store. One project failing, timing out, or returning garbage
// never aborts the run; errors are collected per project and the rest of the
// organization is still ingested.
type IngestService struct {
	client   driven.DevOpsClient
	prs      driven.PRStore
	runs     driven.CIRunStore
	flaky    *FlakyService
	excluded []string
	logger   *slog.Logger
	now      func() time.Time
}

func NewIngestService(
	client driven.DevOpsClient,
	prs driven.PRStore,
	runs driven.CIRunStore,
	flaky *FlakyService,
	excludeProjects []string,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		client:   client,
		prs:      prs,
		runs:     runs,
		flaky:    flaky,
		excluded: excludeProjects,
		logger:   logger,
		now:      time.Now,
	}
}

// resultCollector aggregates counters and errors from concurrent per-project
// workers into a single IngestionResult.
type resultCollector struct {
	mu     sync.Mutex
	result model.IngestionResult
}

func (c *resultCollector) addCounts(inserted, updated, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Inserted += inserted
	c.result.Updated += updated
	c.result.Skipped += skipped
}

func (c *resultCollector) addEnrichmentErrors(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.EnrichmentErrors += n
}

func (c *resultCollector) addError(e model.IngestionError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Errors = append(c.result.Errors, e)
}

func (c *resultCollector) addStep(s model.StepTiming) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Steps = append(c.result.Steps, s)
}

func (c *resultCollector) projectDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.ProjectsProcessed++
}

func (c *resultCollector) finish() model.IngestionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Success = len(c.result.Errors) == 0
	return c.result
}

// IngestPullRequests discovers projects and ingests pull requests for each,
// including review-timeline enrichment.
func (s *IngestService) IngestPullRequests(ctx context.Context) (model.IngestionResult, error) {
	projects, err := s.discoverProjects(ctx)
	if err != nil {
		return model.IngestionResult{}, err
	}

	since := s.now().Add(-recencyLookback)
	collector := &resultCollector{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectConcurrency)
	for _, project := range projects {
		g.Go(func() error {
			s.ingestProjectPRs(gctx, project, since, collector)
			return nil
		})
	}
	_ = g.Wait()

	result := collector.finish()
	s.logger.Info("pull request ingestion finished",
		"projects", result.ProjectsProcessed,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"enrichment_errors", result.EnrichmentErrors,
		"errors", len(result.Errors))
	return result, nil
}

func (s *IngestService) ingestProjectPRs(ctx context.Context, project model.ProjectRef, since time.Time, collector *resultCollector) {
	step, err := RunStep(ctx, "ingest-prs:"+project.Name, projectTimeout, func(ctx context.Context) error {
		return s.fetchAndStorePRs(ctx, project, since, collector)
	})
	collector.addStep(step)
	collector.projectDone()
	if err != nil {
		collector.addError(model.IngestionError{
			Project:  project.Name,
			Message:  err.Error(),
			TimedOut: step.TimedOut,
		})
		s.logger.Error("project pull request ingestion failed",
			"project", project.Name, "error", err, "timed_out", step.TimedOut)
	}
}

func (s *IngestService) fetchAndStorePRs(ctx context.Context, project model.ProjectRef, since time.Time, collector *resultCollector) error {
	repos, err := s.client.ListRepositories(ctx, project.Name)
	if err != nil {
		return fmt.Errorf("listing repositories: %w", err)
	}

	var (
		mu      sync.Mutex
		fetched []model.PullRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repoConcurrency)
	for _, repo := range repos {
		g.Go(func() error {
			prs, err := s.client.ListPullRequests(gctx, project.Name, repo, since)
			if err != nil {
				// One broken repository must not sink the project.
				s.logger.Warn("skipping repository",
					"project", project.Name, "repo", repo.Name, "error", err)
				collector.addError(model.IngestionError{
					Project: project.Name,
					Item:    repo.Name,
					Message: fmt.Sprintf("listing pull requests: %v", err),
				})
				return nil
			}
			mu.Lock()
			fetched = append(fetched, prs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	repoIDs := make(map[string]string, len(repos))
	for _, r := range repos {
		repoIDs[r.Name] = r.ID
	}

	for _, pr := range fetched {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.enrichPR(ctx, project.Name, repoIDs[pr.RepoName], &pr, collector)
		if err := s.upsertPR(ctx, pr, collector); err != nil {
			// A bad record must not drop the rest of the fetched set.
			s.logger.Warn("skipping pull request",
				"project", pr.ProjectName, "repo", pr.RepoName, "pr", pr.Number, "error", err)
			collector.addError(model.IngestionError{
				Project: pr.ProjectName,
				Item:    fmt.Sprintf("%s#%d", pr.RepoName, pr.Number),
				Message: err.Error(),
			})
		}
	}
	return nil
}

// enrichPR fills FirstReviewAt and ApprovedAt from the PR's comment threads.
// Enrichment is best effort: a thread fetch failure leaves the timestamps nil
// and bumps the enrichment error counter.
func (s *IngestService) enrichPR(ctx context.Context, project, repoID string, pr *model.PullRequest, collector *resultCollector) {
	threads, err := s.client.ListPullRequestThreads(ctx, project, repoID, pr.Number)
	if err != nil {
		collector.addEnrichmentErrors(1)
		s.logger.Warn("review enrichment failed",
			"project", project, "repo", pr.RepoName, "pr", pr.Number, "error", err)
		return
	}
	pr.FirstReviewAt, pr.ApprovedAt = ReviewTimes(threads, pr.Reviewers)
}

func (s *IngestService) upsertPR(ctx context.Context, pr model.PullRequest, collector *resultCollector) error {
	existing, err := s.prs.GetByKey(ctx, pr.ProjectName, pr.RepoName, pr.Number)
	if err != nil {
		return fmt.Errorf("loading pull request %s/%s#%d: %w", pr.ProjectName, pr.RepoName, pr.Number, err)
	}

	switch DecidePRUpsert(existing, pr) {
	case UpsertInsert:
		if err := s.prs.Insert(ctx, pr); err != nil {
			return fmt.Errorf("inserting pull request %s/%s#%d: %w", pr.ProjectName, pr.RepoName, pr.Number, err)
		}
		collector.addCounts(1, 0, 0)
	case UpsertUpdate:
		merged := MergePRUpdate(*existing, pr)
		if err := s.prs.Update(ctx, merged); err != nil {
			return fmt.Errorf("updating pull request %s/%s#%d: %w", pr.ProjectName, pr.RepoName, pr.Number, err)
		}
		collector.addCounts(0, 1, 0)
	case UpsertSkip:
		collector.addCounts(0, 0, 1)
	}
	return nil
}

// IngestBuilds discovers projects, ingests CI runs for each, then runs one
// flaky detection pass over the refreshed data.
func (s *IngestService) IngestBuilds(ctx context.Context) (model.IngestionResult, error) {
	projects, err := s.discoverProjects(ctx)
	if err != nil {
		return model.IngestionResult{}, err
	}

	since := s.now().Add(-recencyLookback)
	collector := &resultCollector{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectConcurrency)
	for _, project := range projects {
		g.Go(func() error {
			s.ingestProjectBuilds(gctx, project, since, collector)
			return nil
		})
	}
	_ = g.Wait()

	if s.flaky != nil {
		step, err := RunStep(ctx, "flaky-detection", flakyPassTimeout, func(ctx context.Context) error {
			flagged, err := s.flaky.Detect(ctx)
			collector.mu.Lock()
			collector.result.FlakyRunsDetected += flagged
			collector.mu.Unlock()
			return err
		})
		collector.addStep(step)
		if err != nil {
			collector.addError(model.IngestionError{
				Item:     "flaky-detection",
				Message:  err.Error(),
				TimedOut: step.TimedOut,
			})
		}
	}

	result := collector.finish()
	s.logger.Info("build ingestion finished",
		"projects", result.ProjectsProcessed,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"flaky_detected", result.FlakyRunsDetected,
		"errors", len(result.Errors))
	return result, nil
}

func (s *IngestService) ingestProjectBuilds(ctx context.Context, project model.ProjectRef, since time.Time, collector *resultCollector) {
	step, err := RunStep(ctx, "ingest-builds:"+project.Name, projectTimeout, func(ctx context.Context) error {
		return s.fetchAndStoreBuilds(ctx, project, since, collector)
	})
	collector.addStep(step)
	collector.projectDone()
	if err != nil {
		collector.addError(model.IngestionError{
			Project:  project.Name,
			Message:  err.Error(),
			TimedOut: step.TimedOut,
		})
		s.logger.Error("project build ingestion failed",
			"project", project.Name, "error", err, "timed_out", step.TimedOut)
	}
}

func (s *IngestService) fetchAndStoreBuilds(ctx context.Context, project model.ProjectRef, since time.Time, collector *resultCollector) error {
	runs, err := s.client.ListBuilds(ctx, project.Name, since)
	if err != nil {
		return fmt.Errorf("listing builds: %w", err)
	}

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertCIRun(ctx, run, collector); err != nil {
			s.logger.Warn("skipping run",
				"project", run.ProjectName, "run", run.RunID, "error", err)
			collector.addError(model.IngestionError{
				Project: run.ProjectName,
				Item:    run.RunID,
				Message: err.Error(),
			})
		}
	}
	return nil
}

func (s *IngestService) upsertCIRun(ctx context.Context, run model.CIRun, collector *resultCollector) error {
	existing, err := s.runs.GetByRunID(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", run.RunID, err)
	}

	switch DecideCIRunUpsert(existing, run) {
	case UpsertInsert:
		if err := s.runs.Insert(ctx, run); err != nil {
			return fmt.Errorf("inserting run %s: %w", run.RunID, err)
		}
		collector.addCounts(1, 0, 0)
	case UpsertUpdate:
		merged := MergeCIRunUpdate(*existing, run)
		if err := s.runs.Update(ctx, merged); err != nil {
			return fmt.Errorf("updating run %s: %w", run.RunID, err)
		}
		collector.addCounts(0, 1, 0)
	case UpsertSkip:
		collector.addCounts(0, 0, 1)
	}
	return nil
}

// discoverProjects lists the organization's projects and applies the
// configured exclusion list. Name matching is exact and case sensitive.
func (s *IngestService) discoverProjects(ctx context.Context) ([]model.ProjectRef, error) {
	projects, err := s.client.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	kept := projects[:0:0]
	for _, p := range projects {
		if slices.Contains(s.excluded, p.Name) {
			s.logger.Debug("excluding project", "project", p.Name)
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

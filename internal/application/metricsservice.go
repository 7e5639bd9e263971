package application

import (
	"context"
	"fmt"
	"math"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

// PR size bucket boundaries, in total changed lines.
const (
	sizeXSMax = 50
	sizeSMax  = 200
	sizeMMax  = 500
	sizeLMax  = 1000
)

// MetricsService computes DORA and flow metrics over ingested data. Every
// method takes an inclusive time window and a project filter; an empty
// project means the whole organization. ByProject variants fan the same
// metric out per project in one pass over the store.
type MetricsService struct {
	store driven.MetricsStore
}

func NewMetricsService(store driven.MetricsStore) *MetricsService {
	return &MetricsService{store: store}
}

// DeploymentFrequency counts successful production deployments in the window.
func (s *MetricsService) DeploymentFrequency(ctx context.Context, w model.Window, project string) (model.DeploymentFrequency, error) {
	count, err := s.store.CountProdDeployments(ctx, w, project)
	if err != nil {
		return model.DeploymentFrequency{}, fmt.Errorf("counting deployments: %w", err)
	}
	return model.DeploymentFrequency{Count: count}, nil
}

func (s *MetricsService) DeploymentFrequencyByProject(ctx context.Context, w model.Window) (map[string]model.DeploymentFrequency, error) {
	counts, err := s.store.CountProdDeploymentsByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("counting deployments by project: %w", err)
	}
	out := make(map[string]model.DeploymentFrequency, len(counts))
	for project, count := range counts {
		out[project] = model.DeploymentFrequency{Count: count}
	}
	return out, nil
}

// ChangeFailureRate is the percentage of production deployments in the window
// that failed or were rolled back. Zero deployments yields a zero rate, not
// an error.
func (s *MetricsService) ChangeFailureRate(ctx context.Context, w model.Window, project string) (model.ChangeFailureRate, error) {
	outcomes, err := s.store.ProdDeploymentOutcomes(ctx, w, project)
	if err != nil {
		return model.ChangeFailureRate{}, fmt.Errorf("loading deployment outcomes: %w", err)
	}
	return changeFailureRate(outcomes), nil
}

func (s *MetricsService) ChangeFailureRateByProject(ctx context.Context, w model.Window) (map[string]model.ChangeFailureRate, error) {
	byProject, err := s.store.ProdDeploymentOutcomesByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("loading deployment outcomes by project: %w", err)
	}
	out := make(map[string]model.ChangeFailureRate, len(byProject))
	for project, outcomes := range byProject {
		out[project] = changeFailureRate(outcomes)
	}
	return out, nil
}

func changeFailureRate(o driven.DeploymentOutcomes) model.ChangeFailureRate {
	rate := model.ChangeFailureRate{FailedCount: o.Failed, TotalCount: o.Total}
	if o.Total > 0 {
		rate.Percentage = round2(float64(o.Failed) / float64(o.Total) * 100)
	}
	return rate
}

// LeadTimeForChanges reports p50 and p90 of commit-to-production time, where
// each (successful production deployment, related PR) pair contributes one
// sample measured from PR creation to deployment completion.
func (s *MetricsService) LeadTimeForChanges(ctx context.Context, w model.Window, project string) (model.DurationStats, error) {
	samples, err := s.store.LeadTimeSamples(ctx, w, project)
	if err != nil {
		return model.DurationStats{}, fmt.Errorf("loading lead time samples: %w", err)
	}
	return durationStats(samples), nil
}

func (s *MetricsService) LeadTimeForChangesByProject(ctx context.Context, w model.Window) (map[string]model.DurationStats, error) {
	byProject, err := s.store.LeadTimeSamplesByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("loading lead time samples by project: %w", err)
	}
	return statsByProject(byProject), nil
}

// MeanTimeToRecovery reports p50 and p90 of failure-to-recovery time for
// failed production deployments that have a recovery timestamp.
func (s *MetricsService) MeanTimeToRecovery(ctx context.Context, w model.Window, project string) (model.DurationStats, error) {
	samples, err := s.store.MTTRSamples(ctx, w, project)
	if err != nil {
		return model.DurationStats{}, fmt.Errorf("loading recovery samples: %w", err)
	}
	return durationStats(samples), nil
}

func (s *MetricsService) MeanTimeToRecoveryByProject(ctx context.Context, w model.Window) (map[string]model.DurationStats, error) {
	byProject, err := s.store.MTTRSamplesByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("loading recovery samples by project: %w", err)
	}
	return statsByProject(byProject), nil
}

// PRCycleTime reports p50 and p90 of creation-to-merge time for non-draft
// merged pull requests.
func (s *MetricsService) PRCycleTime(ctx context.Context, w model.Window, project string) (model.DurationStats, error) {
	samples, err := s.store.PRCycleTimeSamples(ctx, w, project)
	if err != nil {
		return model.DurationStats{}, fmt.Errorf("loading cycle time samples: %w", err)
	}
	return durationStats(samples), nil
}

func (s *MetricsService) PRCycleTimeByProject(ctx context.Context, w model.Window) (map[string]model.DurationStats, error) {
	byProject, err := s.store.PRCycleTimeSamplesByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("loading cycle time samples by project: %w", err)
	}
	return statsByProject(byProject), nil
}

// PRReviewWaitTime reports p50 and p90 of creation-to-first-review time for
// non-draft pull requests that received a review.
func (s *MetricsService) PRReviewWaitTime(ctx context.Context, w model.Window, project string) (model.DurationStats, error) {
	samples, err := s.store.ReviewWaitSamples(ctx, w, project)
	if err != nil {
		return model.DurationStats{}, fmt.Errorf("loading review wait samples: %w", err)
	}
	return durationStats(samples), nil
}

func (s *MetricsService) PRReviewWaitTimeByProject(ctx context.Context, w model.Window) (map[string]model.DurationStats, error) {
	byProject, err := s.store.ReviewWaitSamplesByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("loading review wait samples by project: %w", err)
	}
	return statsByProject(byProject), nil
}

// PRSizeDistribution buckets non-draft merged pull requests by total changed
// lines: xs up to 50, s up to 200, m up to 500, l up to 1000, xl above.
func (s *MetricsService) PRSizeDistribution(ctx context.Context, w model.Window, project string) (model.PRSizeDistribution, error) {
	sizes, err := s.store.MergedPRSizes(ctx, w, project)
	if err != nil {
		return model.PRSizeDistribution{}, fmt.Errorf("loading merged sizes: %w", err)
	}
	return sizeDistribution(sizes), nil
}

func (s *MetricsService) PRSizeDistributionByProject(ctx context.Context, w model.Window) (map[string]model.PRSizeDistribution, error) {
	byProject, err := s.store.MergedPRSizesByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("loading merged sizes by project: %w", err)
	}
	out := make(map[string]model.PRSizeDistribution, len(byProject))
	for project, sizes := range byProject {
		out[project] = sizeDistribution(sizes)
	}
	return out, nil
}

// FlakyTestRate is the percentage of CI runs in the window flagged flaky.
func (s *MetricsService) FlakyTestRate(ctx context.Context, w model.Window, project string) (model.FlakyRate, error) {
	counts, err := s.store.CIRunCounts(ctx, w, project)
	if err != nil {
		return model.FlakyRate{}, fmt.Errorf("counting runs: %w", err)
	}
	return flakyRate(counts), nil
}

func (s *MetricsService) FlakyTestRateByProject(ctx context.Context, w model.Window) (map[string]model.FlakyRate, error) {
	byProject, err := s.store.CIRunCountsByProject(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("counting runs by project: %w", err)
	}
	out := make(map[string]model.FlakyRate, len(byProject))
	for project, counts := range byProject {
		out[project] = flakyRate(counts)
	}
	return out, nil
}

func flakyRate(c driven.CIRunCounts) model.FlakyRate {
	rate := model.FlakyRate{FlakyRuns: c.Flaky, TotalRuns: c.Total}
	if c.Total > 0 {
		rate.Percentage = round2(float64(c.Flaky) / float64(c.Total) * 100)
	}
	return rate
}

func sizeDistribution(sizes []int) model.PRSizeDistribution {
	dist := model.PRSizeDistribution{Total: len(sizes)}
	for _, size := range sizes {
		switch {
		case size <= sizeXSMax:
			dist.XS.Count++
		case size <= sizeSMax:
			dist.S.Count++
		case size <= sizeMMax:
			dist.M.Count++
		case size <= sizeLMax:
			dist.L.Count++
		default:
			dist.XL.Count++
		}
	}
	if dist.Total > 0 {
		total := float64(dist.Total)
		for _, b := range []*model.SizeBucket{&dist.XS, &dist.S, &dist.M, &dist.L, &dist.XL} {
			b.Percentage = round2(float64(b.Count) / total * 100)
		}
	}
	return dist
}

func statsByProject(samples map[string][]float64) map[string]model.DurationStats {
	out := make(map[string]model.DurationStats, len(samples))
	for project, s := range samples {
		out[project] = durationStats(s)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

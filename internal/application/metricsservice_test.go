package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/devpulse/internal/application"
	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

type mockMetricsStore struct {
	deployCount  int
	deployCounts map[string]int
	outcomes     driven.DeploymentOutcomes
	outcomesBP   map[string]driven.DeploymentOutcomes
	leadTimes    []float64
	leadTimesBP  map[string][]float64
	mttr         []float64
	cycleTimes   []float64
	reviewWaits  []float64
	sizes        []int
	sizesBP      map[string][]int
	runCounts    driven.CIRunCounts
	runCountsBP  map[string]driven.CIRunCounts
	lastProject  string
}

func (m *mockMetricsStore) CountProdDeployments(_ context.Context, _ model.Window, project string) (int, error) {
	m.lastProject = project
	return m.deployCount, nil
}

func (m *mockMetricsStore) CountProdDeploymentsByProject(_ context.Context, _ model.Window) (map[string]int, error) {
	return m.deployCounts, nil
}

func (m *mockMetricsStore) ProdDeploymentOutcomes(_ context.Context, _ model.Window, project string) (driven.DeploymentOutcomes, error) {
	m.lastProject = project
	return m.outcomes, nil
}

func (m *mockMetricsStore) ProdDeploymentOutcomesByProject(_ context.Context, _ model.Window) (map[string]driven.DeploymentOutcomes, error) {
	return m.outcomesBP, nil
}

func (m *mockMetricsStore) LeadTimeSamples(_ context.Context, _ model.Window, _ string) ([]float64, error) {
	return m.leadTimes, nil
}

func (m *mockMetricsStore) LeadTimeSamplesByProject(_ context.Context, _ model.Window) (map[string][]float64, error) {
	return m.leadTimesBP, nil
}

func (m *mockMetricsStore) MTTRSamples(_ context.Context, _ model.Window, _ string) ([]float64, error) {
	return m.mttr, nil
}

func (m *mockMetricsStore) MTTRSamplesByProject(_ context.Context, _ model.Window) (map[string][]float64, error) {
	return nil, nil
}

func (m *mockMetricsStore) PRCycleTimeSamples(_ context.Context, _ model.Window, _ string) ([]float64, error) {
	return m.cycleTimes, nil
}

func (m *mockMetricsStore) PRCycleTimeSamplesByProject(_ context.Context, _ model.Window) (map[string][]float64, error) {
	return nil, nil
}

func (m *mockMetricsStore) ReviewWaitSamples(_ context.Context, _ model.Window, _ string) ([]float64, error) {
	return m.reviewWaits, nil
}

func (m *mockMetricsStore) ReviewWaitSamplesByProject(_ context.Context, _ model.Window) (map[string][]float64, error) {
	return nil, nil
}

func (m *mockMetricsStore) MergedPRSizes(_ context.Context, _ model.Window, _ string) ([]int, error) {
	return m.sizes, nil
}

func (m *mockMetricsStore) MergedPRSizesByProject(_ context.Context, _ model.Window) (map[string][]int, error) {
	return m.sizesBP, nil
}

func (m *mockMetricsStore) CIRunCounts(_ context.Context, _ model.Window, _ string) (driven.CIRunCounts, error) {
	return m.runCounts, nil
}

func (m *mockMetricsStore) CIRunCountsByProject(_ context.Context, _ model.Window) (map[string]driven.CIRunCounts, error) {
	return m.runCountsBP, nil
}

var testWindow = model.Window{
	Start: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC),
}

func TestMetricsService_DeploymentFrequency(t *testing.T) {
	store := &mockMetricsStore{deployCount: 5}
	svc := application.NewMetricsService(store)

	freq, err := svc.DeploymentFrequency(context.Background(), testWindow, "Fabrikam")
	require.NoError(t, err)
	assert.Equal(t, 5, freq.Count)
	assert.Equal(t, "Fabrikam", store.lastProject)
}

func TestMetricsService_ChangeFailureRate(t *testing.T) {
	// 5 successes, 2 plain failures, 3 rollbacks: 5 of 10 count as failed.
	store := &mockMetricsStore{outcomes: driven.DeploymentOutcomes{Total: 10, Failed: 5}}
	svc := application.NewMetricsService(store)

	cfr, err := svc.ChangeFailureRate(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfr.Percentage)
	assert.Equal(t, 5, cfr.FailedCount)
	assert.Equal(t, 10, cfr.TotalCount)
}

func TestMetricsService_ChangeFailureRate_ZeroDeployments(t *testing.T) {
	svc := application.NewMetricsService(&mockMetricsStore{})

	cfr, err := svc.ChangeFailureRate(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, model.ChangeFailureRate{}, cfr)
}

func TestMetricsService_ChangeFailureRate_Rounds(t *testing.T) {
	store := &mockMetricsStore{outcomes: driven.DeploymentOutcomes{Total: 7, Failed: 2}}
	svc := application.NewMetricsService(store)

	cfr, err := svc.ChangeFailureRate(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 28.57, cfr.Percentage)
}

func TestMetricsService_LeadTimeForChanges(t *testing.T) {
	store := &mockMetricsStore{leadTimes: []float64{1, 2, 3, 3.5, 3.8, 25, 30, 36, 40, 48}}
	svc := application.NewMetricsService(store)

	stats, err := svc.LeadTimeForChanges(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Count)
	require.NotNil(t, stats.P50Hours)
	assert.InDelta(t, 14.4, *stats.P50Hours, 0.0001)
	require.NotNil(t, stats.P90Hours)
	assert.InDelta(t, 40.8, *stats.P90Hours, 0.0001)
}

func TestMetricsService_LeadTimeForChanges_NoSamples(t *testing.T) {
	svc := application.NewMetricsService(&mockMetricsStore{})

	stats, err := svc.LeadTimeForChanges(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Nil(t, stats.P50Hours)
	assert.Nil(t, stats.P90Hours)
}

func TestMetricsService_ByProjectVariants(t *testing.T) {
	store := &mockMetricsStore{
		deployCounts: map[string]int{"Fabrikam": 3, "Contoso": 1},
		outcomesBP: map[string]driven.DeploymentOutcomes{
			"Fabrikam": {Total: 4, Failed: 1},
		},
		leadTimesBP: map[string][]float64{"Fabrikam": {10, 20}},
		runCountsBP: map[string]driven.CIRunCounts{"Fabrikam": {Total: 8, Flaky: 2}},
	}
	svc := application.NewMetricsService(store)
	ctx := context.Background()

	freq, err := svc.DeploymentFrequencyByProject(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 3, freq["Fabrikam"].Count)
	assert.Equal(t, 1, freq["Contoso"].Count)

	cfr, err := svc.ChangeFailureRateByProject(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfr["Fabrikam"].Percentage)

	lead, err := svc.LeadTimeForChangesByProject(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 2, lead["Fabrikam"].Count)
	require.NotNil(t, lead["Fabrikam"].P50Hours)
	assert.InDelta(t, 15.0, *lead["Fabrikam"].P50Hours, 0.0001)

	flaky, err := svc.FlakyTestRateByProject(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 25.0, flaky["Fabrikam"].Percentage)
}

func TestMetricsService_DurationMetricsPassThrough(t *testing.T) {
	store := &mockMetricsStore{
		mttr:        []float64{2, 4},
		cycleTimes:  []float64{10, 20, 30},
		reviewWaits: []float64{1},
	}
	svc := application.NewMetricsService(store)
	ctx := context.Background()

	mttr, err := svc.MeanTimeToRecovery(ctx, testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 2, mttr.Count)
	require.NotNil(t, mttr.P50Hours)
	assert.InDelta(t, 3.0, *mttr.P50Hours, 0.0001)

	cycle, err := svc.PRCycleTime(ctx, testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 3, cycle.Count)
	require.NotNil(t, cycle.P50Hours)
	assert.InDelta(t, 20.0, *cycle.P50Hours, 0.0001)

	wait, err := svc.PRReviewWaitTime(ctx, testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 1, wait.Count)
	require.NotNil(t, wait.P90Hours)
	assert.InDelta(t, 1.0, *wait.P90Hours, 0.0001)
}

func TestMetricsService_PRSizeDistribution(t *testing.T) {
	// One size at each bucket boundary on both sides.
	store := &mockMetricsStore{sizes: []int{50, 51, 200, 201, 500, 501, 1000, 1001}}
	svc := application.NewMetricsService(store)

	dist, err := svc.PRSizeDistribution(context.Background(), testWindow, "")
	require.NoError(t, err)

	assert.Equal(t, 8, dist.Total)
	assert.Equal(t, 1, dist.XS.Count)
	assert.Equal(t, 2, dist.S.Count)
	assert.Equal(t, 2, dist.M.Count)
	assert.Equal(t, 2, dist.L.Count)
	assert.Equal(t, 1, dist.XL.Count)
	assert.Equal(t, 12.5, dist.XS.Percentage)
	assert.Equal(t, 25.0, dist.S.Percentage)
}

func TestMetricsService_PRSizeDistribution_Empty(t *testing.T) {
	svc := application.NewMetricsService(&mockMetricsStore{})

	dist, err := svc.PRSizeDistribution(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Zero(t, dist.Total)
	assert.Zero(t, dist.XS.Percentage)
	assert.Zero(t, dist.XL.Count)
}

func TestMetricsService_FlakyTestRate(t *testing.T) {
	store := &mockMetricsStore{runCounts: driven.CIRunCounts{Total: 3, Flaky: 1}}
	svc := application.NewMetricsService(store)

	rate, err := svc.FlakyTestRate(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, 33.33, rate.Percentage)
	assert.Equal(t, 1, rate.FlakyRuns)
	assert.Equal(t, 3, rate.TotalRuns)
}

func TestMetricsService_FlakyTestRate_ZeroRuns(t *testing.T) {
	svc := application.NewMetricsService(&mockMetricsStore{})

	rate, err := svc.FlakyTestRate(context.Background(), testWindow, "")
	require.NoError(t, err)
	assert.Equal(t, model.FlakyRate{}, rate)
}

package application_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// --- Mock implementations shared by the service tests ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockDevOpsClient struct {
	projects    []model.ProjectRef
	projectsErr error
	repos       map[string][]model.RepositoryRef
	reposErr    map[string]error
	prs         map[string][]model.PullRequest
	prsErr      map[string]error
	threads     map[string][]model.CommentThread
	threadsErr  map[string]error
	builds      map[string][]model.CIRun
	buildsErr   map[string]error
}

func (m *mockDevOpsClient) ListProjects(_ context.Context) ([]model.ProjectRef, error) {
	return m.projects, m.projectsErr
}

func (m *mockDevOpsClient) ListRepositories(_ context.Context, project string) ([]model.RepositoryRef, error) {
	if err := m.reposErr[project]; err != nil {
		return nil, err
	}
	return m.repos[project], nil
}

func (m *mockDevOpsClient) ListPullRequests(_ context.Context, project string, repo model.RepositoryRef, _ time.Time) ([]model.PullRequest, error) {
	key := project + "/" + repo.Name
	if err := m.prsErr[key]; err != nil {
		return nil, err
	}
	return m.prs[key], nil
}

func (m *mockDevOpsClient) ListPullRequestThreads(_ context.Context, project, repoID string, prNumber int) ([]model.CommentThread, error) {
	key := fmt.Sprintf("%s/%s/%d", project, repoID, prNumber)
	if err := m.threadsErr[key]; err != nil {
		return nil, err
	}
	return m.threads[key], nil
}

func (m *mockDevOpsClient) ListBuilds(_ context.Context, project string, _ time.Time) ([]model.CIRun, error) {
	if err := m.buildsErr[project]; err != nil {
		return nil, err
	}
	return m.builds[project], nil
}

type mockPRStore struct {
	mu        sync.Mutex
	byKey     map[string]model.PullRequest
	insertErr map[string]error
	inserts   int
	updates   int
}

func newMockPRStore() *mockPRStore {
	return &mockPRStore{byKey: make(map[string]model.PullRequest)}
}

func prKey(project, repo string, number int) string {
	return fmt.Sprintf("%s/%s/%d", project, repo, number)
}

func (m *mockPRStore) GetByKey(_ context.Context, project, repo string, number int) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pr, ok := m.byKey[prKey(project, repo, number)]; ok {
		return &pr, nil
	}
	return nil, nil
}

func (m *mockPRStore) Insert(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := prKey(pr.ProjectName, pr.RepoName, pr.Number)
	if err := m.insertErr[key]; err != nil {
		return err
	}
	m.byKey[key] = pr
	m.inserts++
	return nil
}

func (m *mockPRStore) Update(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[prKey(pr.ProjectName, pr.RepoName, pr.Number)] = pr
	m.updates++
	return nil
}

func (m *mockPRStore) ListByProject(_ context.Context, project string) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prs []model.PullRequest
	for _, pr := range m.byKey {
		if pr.ProjectName == project {
			prs = append(prs, pr)
		}
	}
	return prs, nil
}

func (m *mockPRStore) Delete(_ context.Context, project, repo string, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, prKey(project, repo, number))
	return nil
}

func (m *mockPRStore) get(project, repo string, number int) (model.PullRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.byKey[prKey(project, repo, number)]
	return pr, ok
}

type mockCIRunStore struct {
	mu        sync.Mutex
	byID      map[string]model.CIRun
	insertErr map[string]error
	inserts   int
	updates   int
	listCalls int
}

func newMockCIRunStore() *mockCIRunStore {
	return &mockCIRunStore{byID: make(map[string]model.CIRun)}
}

func (m *mockCIRunStore) GetByRunID(_ context.Context, runID string) (*model.CIRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.byID[runID]; ok {
		return &run, nil
	}
	return nil, nil
}

func (m *mockCIRunStore) Insert(_ context.Context, run model.CIRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertErr[run.RunID]; err != nil {
		return err
	}
	m.byID[run.RunID] = run
	m.inserts++
	return nil
}

func (m *mockCIRunStore) Update(_ context.Context, run model.CIRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[run.RunID] = run
	m.updates++
	return nil
}

func (m *mockCIRunStore) ListUnflagged(_ context.Context, since time.Time, limit, offset int) ([]model.CIRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	var runs []model.CIRun
	for _, run := range m.byID {
		if !run.IsFlaky && !run.StartedAt.Before(since) {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})

	if offset >= len(runs) {
		return nil, nil
	}
	runs = runs[offset:]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *mockCIRunStore) MarkFlaky(_ context.Context, runIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range runIDs {
		run, ok := m.byID[id]
		if !ok || run.IsFlaky {
			continue
		}
		run.IsFlaky = true
		run.FlakyTestCount = 1
		m.byID[id] = run
	}
	return nil
}

func (m *mockCIRunStore) flaggedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, run := range m.byID {
		if run.IsFlaky {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

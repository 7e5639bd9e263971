package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClientWithDoer(srv.Client(), srv.URL, "testorg", "pat-token",
		NewRateLimiter(60000), 1, 5*time.Second)
}

func writeList[T any](t *testing.T, w http.ResponseWriter, items []T) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(listResponse[T]{Count: len(items), Value: items}))
}

func TestClient_ListProjects(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/testorg/_apis/projects", r.URL.Path)
		assert.Equal(t, apiVersion, r.URL.Query().Get("api-version"))

		username, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Empty(t, username)
		assert.Equal(t, "pat-token", password)

		writeList(t, w, []wireProject{{ID: "p1", Name: "Fabrikam"}, {ID: "p2", Name: "Contoso"}})
	}))

	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.ProjectRef{{ID: "p1", Name: "Fabrikam"}, {ID: "p2", Name: "Contoso"}}, projects)
}

func TestClient_ListProjects_Paginates(t *testing.T) {
	// Two full pages then a short one. Pagination stops on the short page.
	total := 2*pageSize + 5
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("$skip"))
		top, _ := strconv.Atoi(r.URL.Query().Get("$top"))
		require.Equal(t, pageSize, top)

		var page []wireProject
		for i := skip; i < total && i < skip+top; i++ {
			page = append(page, wireProject{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Project %d", i)})
		}
		writeList(t, w, page)
	}))

	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, total)
	assert.Equal(t, "p0", projects[0].ID)
	assert.Equal(t, fmt.Sprintf("p%d", total-1), projects[total-1].ID)
}

func TestClient_ListRepositories(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/testorg/Fabrikam/_apis/git/repositories", r.URL.Path)
		writeList(t, w, []wireRepository{{ID: "r1", Name: "web"}})
	}))

	repos, err := client.ListRepositories(context.Background(), "Fabrikam")
	require.NoError(t, err)
	assert.Equal(t, []model.RepositoryRef{{ID: "r1", Name: "web"}}, repos)
}

func TestClient_ListPullRequests_FiltersBySince(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("searchCriteria.status"))
		assert.NotEmpty(t, r.URL.Query().Get("searchCriteria.minTime"))

		writeList(t, w, []wirePullRequest{
			{PullRequestID: 1, Title: "Recent", Status: 1, CreationDate: since.Add(time.Hour)},
			{PullRequestID: 2, Title: "Stale", Status: 1, CreationDate: since.Add(-time.Hour)},
		})
	}))

	prs, err := client.ListPullRequests(context.Background(), "Fabrikam", model.RepositoryRef{ID: "r1", Name: "web"}, since)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 1, prs[0].Number)
	assert.Equal(t, "Recent", prs[0].Title)
}

func TestClient_ListPullRequestThreads(t *testing.T) {
	published := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/testorg/Fabrikam/_apis/git/repositories/r1/pullRequests/7/threads", r.URL.Path)
		writeList(t, w, []wireThread{
			{PublishedDate: published, Comments: []wireComment{{PublishedDate: published}}},
		})
	}))

	threads, err := client.ListPullRequestThreads(context.Background(), "Fabrikam", "r1", 7)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, published, threads[0].PublishedAt)
}

func TestClient_ListBuilds_FiltersBySince(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := since.Add(time.Hour)
	stale := since.Add(-time.Hour)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeList(t, w, []wireBuild{
			{ID: 1, Status: 2, Result: 2, StartTime: &recent},
			{ID: 2, Status: 2, Result: 2, StartTime: &stale},
		})
	}))

	runs, err := client.ListBuilds(context.Background(), "Fabrikam", since)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Fabrikam-1", runs[0].RunID)
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.ListProjects(context.Background())
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestClient_ServerErrorRetries(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeList(t, w, []wireProject{{ID: "p1", Name: "Fabrikam"}})
	}))
	client.retryer.minInterval = time.Millisecond
	client.retryer.maxInterval = 5 * time.Millisecond

	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	assert.Equal(t, 2, calls)
}

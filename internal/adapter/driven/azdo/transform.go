package azdo

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// Upstream integer enums. These are the only place the raw values appear;
// everything past the transformers speaks domain enums.
const (
	prStatusCompleted = 3
	prStatusAbandoned = 2

	buildStatusInProgress = 1
	buildStatusCompleted  = 2
	buildStatusCancelling = 4

	buildResultSucceeded          = 2
	buildResultPartiallySucceeded = 4
	buildResultFailed             = 8
	buildResultCanceled           = 32
)

// transformPullRequest maps a raw upstream pull request into the persisted
// shape. Pure: no I/O, deterministic for identical input.
//
// Defaulting rules are behavioral contracts: missing title becomes
// "Untitled PR", missing author "Unknown", missing repository "unknown",
// missing target branch "main", missing source branch nil. Size metrics are
// always zero here; the list API does not carry them. UpdatedAt is the
// upstream close date when present, else the creation date — never the
// ingestion wall clock, or smart-merge comparisons would always overwrite.
func transformPullRequest(raw wirePullRequest, project string) model.PullRequest {
	title := raw.Title
	if title == "" {
		title = "Untitled PR"
	}

	author := "Unknown"
	if raw.CreatedBy != nil && raw.CreatedBy.DisplayName != "" {
		author = raw.CreatedBy.DisplayName
	}

	repoName := "unknown"
	if raw.Repository != nil && raw.Repository.Name != "" {
		repoName = raw.Repository.Name
	}

	baseBranch := "main"
	if raw.TargetRefName != "" {
		baseBranch = stripRefPrefix(raw.TargetRefName)
	}

	var headBranch *string
	if raw.SourceRefName != "" {
		branch := stripRefPrefix(raw.SourceRefName)
		headBranch = &branch
	}

	labels := make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		labels = append(labels, l.Name)
	}

	state := model.PRStateOpen
	var closedAt, mergedAt *time.Time
	switch raw.Status {
	case prStatusCompleted:
		state = model.PRStateMerged
		if raw.ClosedDate != nil {
			closedAt = raw.ClosedDate
			mergedAt = raw.ClosedDate
		}
	case prStatusAbandoned:
		state = model.PRStateClosed
		closedAt = raw.ClosedDate
	}

	updatedAt := raw.CreationDate
	if raw.ClosedDate != nil {
		updatedAt = *raw.ClosedDate
	}

	reviewers := make([]model.Reviewer, 0, len(raw.Reviewers))
	for _, r := range raw.Reviewers {
		reviewers = append(reviewers, model.Reviewer{
			ID:          r.ID,
			DisplayName: r.DisplayName,
			UniqueName:  r.UniqueName,
			Vote:        r.Vote,
		})
	}

	return model.PullRequest{
		Number:      raw.PullRequestID,
		RepoName:    repoName,
		ProjectName: project,
		Title:       title,
		Author:      author,
		State:       state,
		IsDraft:     raw.IsDraft,
		BaseBranch:  baseBranch,
		HeadBranch:  headBranch,
		Labels:      labels,
		CreatedAt:   raw.CreationDate,
		UpdatedAt:   updatedAt,
		ClosedAt:    closedAt,
		MergedAt:    mergedAt,
		Reviewers:   reviewers,
	}
}

// transformBuild maps a raw upstream build into the persisted CI run shape.
// Pure. The run ID is synthesized as "<project>-<buildID>" for global
// uniqueness. IsFlaky and FlakyTestCount always start false/0; detection is a
// separate later pass.
func transformBuild(raw wireBuild, project string) model.CIRun {
	workflowName := "unknown"
	if raw.Definition != nil && raw.Definition.Name != "" {
		workflowName = raw.Definition.Name
	}

	repoName := "unknown"
	if raw.Repository != nil && raw.Repository.Name != "" {
		repoName = raw.Repository.Name
	}

	var branch *string
	if raw.SourceBranch != "" {
		b := stripRefPrefix(raw.SourceBranch)
		branch = &b
	}

	var commitSHA *string
	if raw.SourceVersion != "" {
		sha := raw.SourceVersion
		commitSHA = &sha
	}

	status := model.CIStatusUnknown
	switch raw.Status {
	case buildStatusInProgress:
		status = model.CIStatusInProgress
	case buildStatusCompleted:
		status = model.CIStatusCompleted
	case buildStatusCancelling:
		status = model.CIStatusCancelling
	}

	conclusion := model.CIConclusionNone
	if status == model.CIStatusCompleted {
		switch raw.Result {
		case buildResultSucceeded:
			conclusion = model.CIConclusionSuccess
		case buildResultPartiallySucceeded:
			conclusion = model.CIConclusionPartiallySucceeded
		case buildResultFailed:
			conclusion = model.CIConclusionFailure
		case buildResultCanceled:
			conclusion = model.CIConclusionCancelled
		}
	}

	var startedAt time.Time
	switch {
	case raw.StartTime != nil:
		startedAt = *raw.StartTime
	case raw.QueueTime != nil:
		startedAt = *raw.QueueTime
	}

	return model.CIRun{
		RunID:        fmt.Sprintf("%s-%d", project, raw.ID),
		WorkflowName: workflowName,
		RepoName:     repoName,
		ProjectName:  project,
		Branch:       branch,
		CommitSHA:    commitSHA,
		Status:       status,
		Conclusion:   conclusion,
		StartedAt:    startedAt,
		CompletedAt:  raw.FinishTime,
	}
}

// transformThread maps a raw comment thread for review enrichment.
func transformThread(raw wireThread) model.CommentThread {
	comments := make([]model.ThreadComment, 0, len(raw.Comments))
	for _, c := range raw.Comments {
		comment := model.ThreadComment{PublishedAt: c.PublishedDate}
		if c.Author != nil {
			comment.Author = model.Identity{
				ID:          c.Author.ID,
				DisplayName: c.Author.DisplayName,
				UniqueName:  c.Author.UniqueName,
			}
		}
		comments = append(comments, comment)
	}

	return model.CommentThread{
		PublishedAt: raw.PublishedDate,
		IsDeleted:   raw.IsDeleted,
		Comments:    comments,
	}
}

// stripRefPrefix removes a refs/heads/ prefix from a git ref, if present.
func stripRefPrefix(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

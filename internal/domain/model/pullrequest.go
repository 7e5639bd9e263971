package model

import "time"

// PullRequest represents an ingested pull request. Its natural identity is the
// (ProjectName, RepoName, Number) triple; PR numbering restarts per repository,
// so Number alone is not unique.
type PullRequest struct {
	ID           int64
	Number       int
	RepoName     string
	ProjectName  string
	Title        string
	Author       string
	State        PRState
	IsDraft      bool
	BaseBranch   string
	HeadBranch   *string
	Labels       []string
	Additions    int
	Deletions    int
	ChangedFiles int
	CreatedAt    time.Time
	// UpdatedAt carries the source system's last-modification time, never the
	// ingestion wall clock. Smart-merge comparisons depend on it.
	UpdatedAt     time.Time
	ClosedAt      *time.Time
	MergedAt      *time.Time
	FirstReviewAt *time.Time
	ApprovedAt    *time.Time

	// Transient fields populated during fetch, not persisted.
	Reviewers []Reviewer
}

// TotalLines returns the combined additions and deletions, the input to PR
// size bucketing.
func (pr PullRequest) TotalLines() int {
	return pr.Additions + pr.Deletions
}

// IsMerged reports whether the PR reached the merged state.
func (pr PullRequest) IsMerged() bool {
	return pr.State == PRStateMerged
}

// Reviewer is a PR reviewer identity with their current vote. Transient fetch
// data consumed by review enrichment; not persisted.
type Reviewer struct {
	ID          string
	DisplayName string
	UniqueName  string
	Vote        int
}

// VoteApproved is the upstream vote value meaning "approved".
const VoteApproved = 10

// HasApproved reports whether the reviewer's vote is an approval.
func (r Reviewer) HasApproved() bool {
	return r.Vote == VoteApproved
}

// CommentThread is a PR discussion thread as returned by the upstream threads
// endpoint. Consumed by review enrichment only.
type CommentThread struct {
	PublishedAt time.Time
	IsDeleted   bool
	Comments    []ThreadComment
}

// ThreadComment is a single comment inside a thread.
type ThreadComment struct {
	Author      Identity
	PublishedAt time.Time
}

// Identity is an upstream user identity. Any of the three fields may match a
// Reviewer during approval detection.
type Identity struct {
	ID          string
	DisplayName string
	UniqueName  string
}

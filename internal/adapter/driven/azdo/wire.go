package azdo

import "time"

// Wire types mirror the upstream REST payloads. Raw integer enums never leave
// this package: the transformers map them to closed domain enums.

// listResponse is the standard list envelope used by every collection
// endpoint.
type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

type wireProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireRepository struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

type wireReviewer struct {
	wireIdentity
	Vote int `json:"vote"`
}

type wireLabel struct {
	Name string `json:"name"`
}

type wirePullRequest struct {
	PullRequestID int             `json:"pullRequestId"`
	Title         string          `json:"title"`
	CreatedBy     *wireIdentity   `json:"createdBy"`
	Repository    *wireRepository `json:"repository"`
	Status        int             `json:"status"`
	CreationDate  time.Time       `json:"creationDate"`
	ClosedDate    *time.Time      `json:"closedDate"`
	SourceRefName string          `json:"sourceRefName"`
	TargetRefName string          `json:"targetRefName"`
	IsDraft       bool            `json:"isDraft"`
	Labels        []wireLabel     `json:"labels"`
	Reviewers     []wireReviewer  `json:"reviewers"`
}

type wireDefinition struct {
	Name string `json:"name"`
}

type wireBuild struct {
	ID            int             `json:"id"`
	Definition    *wireDefinition `json:"definition"`
	Repository    *wireRepository `json:"repository"`
	SourceBranch  string          `json:"sourceBranch"`
	SourceVersion string          `json:"sourceVersion"`
	Status        int             `json:"status"`
	Result        int             `json:"result"`
	QueueTime     *time.Time      `json:"queueTime"`
	StartTime     *time.Time      `json:"startTime"`
	FinishTime    *time.Time      `json:"finishTime"`
}

type wireComment struct {
	Author        *wireIdentity `json:"author"`
	PublishedDate time.Time     `json:"publishedDate"`
}

type wireThread struct {
	PublishedDate time.Time     `json:"publishedDate"`
	IsDeleted     bool          `json:"isDeleted"`
	Comments      []wireComment `json:"comments"`
}

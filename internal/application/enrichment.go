package application

import (
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// ReviewTimes derives review timeline timestamps for a pull request from its
// comment threads and reviewer list.
//
// FirstReviewAt is the earliest PublishedAt of any non-deleted thread that
// carries at least one comment. ApprovedAt is the earliest such thread
// authored by a reviewer who cast an approving vote. Either result is nil
// when no qualifying thread exists.
func ReviewTimes(threads []model.CommentThread, reviewers []model.Reviewer) (firstReviewAt, approvedAt *time.Time) {
	approvers := make(map[string]bool)
	for _, r := range reviewers {
		if !r.HasApproved() {
			continue
		}
		if r.ID != "" {
			approvers[r.ID] = true
		}
		if r.UniqueName != "" {
			approvers[r.UniqueName] = true
		}
		if r.DisplayName != "" {
			approvers[r.DisplayName] = true
		}
	}

	for _, thread := range threads {
		if thread.IsDeleted || len(thread.Comments) == 0 {
			continue
		}

		published := thread.PublishedAt
		if firstReviewAt == nil || published.Before(*firstReviewAt) {
			t := published
			firstReviewAt = &t
		}

		if len(approvers) == 0 {
			continue
		}
		for _, comment := range thread.Comments {
			author := comment.Author
			if approvers[author.ID] || approvers[author.UniqueName] || approvers[author.DisplayName] {
				if approvedAt == nil || published.Before(*approvedAt) {
					t := published
					approvedAt = &t
				}
				break
			}
		}
	}

	return firstReviewAt, approvedAt
}

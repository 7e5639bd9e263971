package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

func TestPullRequest_TotalLines(t *testing.T) {
	pr := model.PullRequest{Additions: 120, Deletions: 30}
	assert.Equal(t, 150, pr.TotalLines())
}

func TestPullRequest_IsMerged(t *testing.T) {
	assert.True(t, model.PullRequest{State: model.PRStateMerged}.IsMerged())
	assert.False(t, model.PullRequest{State: model.PRStateOpen}.IsMerged())
	assert.False(t, model.PullRequest{State: model.PRStateClosed}.IsMerged())
}

func TestReviewer_HasApproved(t *testing.T) {
	assert.True(t, model.Reviewer{Vote: model.VoteApproved}.HasApproved())
	assert.False(t, model.Reviewer{Vote: 5}.HasApproved())
	assert.False(t, model.Reviewer{Vote: -10}.HasApproved())
	assert.False(t, model.Reviewer{}.HasApproved())
}

func TestCIRunConclusion_IsFailure(t *testing.T) {
	assert.True(t, model.CIConclusionFailure.IsFailure())
	assert.True(t, model.CIConclusionPartiallySucceeded.IsFailure())
	assert.False(t, model.CIConclusionSuccess.IsFailure())
	assert.False(t, model.CIConclusionCancelled.IsFailure())
	assert.False(t, model.CIConclusionNone.IsFailure())
}

func TestDeployment_CountsAsFailure(t *testing.T) {
	assert.False(t, model.Deployment{}.CountsAsFailure())
	assert.True(t, model.Deployment{IsFailed: true}.CountsAsFailure())
	assert.True(t, model.Deployment{IsRollback: true}.CountsAsFailure())
}

func TestWindow_Contains(t *testing.T) {
	w := model.Window{
		Start: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.True(t, w.Contains(w.Start.Add(12*time.Hour)))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End.Add(time.Nanosecond)))
}

package application

import "github.com/ericfisherdev/devpulse/internal/domain/model"

// UpsertAction is the three-way smart-merge decision. Re-running ingestion
// against unchanged upstream data must decide skip for every record; that is
// the backbone of idempotent re-ingestion.
type UpsertAction int

const (
	UpsertInsert UpsertAction = iota
	UpsertUpdate
	UpsertSkip
)

// DecidePRUpsert picks the action for an incoming pull request against the
// stored record (nil when absent). Update requires the incoming record to be
// demonstrably newer by source-system UpdatedAt, or to add a previously-null
// enrichment timestamp.
func DecidePRUpsert(existing *model.PullRequest, incoming model.PullRequest) UpsertAction {
	if existing == nil {
		return UpsertInsert
	}

	if incoming.UpdatedAt.After(existing.UpdatedAt) {
		return UpsertUpdate
	}
	if existing.FirstReviewAt == nil && incoming.FirstReviewAt != nil {
		return UpsertUpdate
	}
	if existing.ApprovedAt == nil && incoming.ApprovedAt != nil {
		return UpsertUpdate
	}

	return UpsertSkip
}

// MergePRUpdate produces the record to store for an update: the incoming
// fields, with enrichment timestamps carried forward when the incoming record
// lacks them so a failed enrichment pass never erases earlier enrichment.
func MergePRUpdate(existing, incoming model.PullRequest) model.PullRequest {
	merged := incoming
	merged.ID = existing.ID
	if merged.FirstReviewAt == nil {
		merged.FirstReviewAt = existing.FirstReviewAt
	}
	if merged.ApprovedAt == nil {
		merged.ApprovedAt = existing.ApprovedAt
	}
	return merged
}

// DecideCIRunUpsert picks the action for an incoming CI run. Update triggers
// on a status transition, a flaky flag newly set, or a PR number filled in
// from null. The flaky trigger is one-directional: upstream records never
// carry the locally computed flag, so an incoming IsFlaky=false against a
// flagged stored run is not a difference worth a write.
func DecideCIRunUpsert(existing *model.CIRun, incoming model.CIRun) UpsertAction {
	if existing == nil {
		return UpsertInsert
	}

	if incoming.Status != existing.Status {
		return UpsertUpdate
	}
	if !existing.IsFlaky && incoming.IsFlaky {
		return UpsertUpdate
	}
	if existing.PRNumber == nil && incoming.PRNumber != nil {
		return UpsertUpdate
	}

	return UpsertSkip
}

// MergeCIRunUpdate produces the record to store for an update. The flaky flag
// is one-directional: once a stored run is flagged, an update never resets it.
func MergeCIRunUpdate(existing, incoming model.CIRun) model.CIRun {
	merged := incoming
	if existing.IsFlaky {
		merged.IsFlaky = true
		if merged.FlakyTestCount < existing.FlakyTestCount {
			merged.FlakyTestCount = existing.FlakyTestCount
		}
	}
	if merged.PRNumber == nil {
		merged.PRNumber = existing.PRNumber
	}
	return merged
}

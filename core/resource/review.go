package resource

import "github.com/pkg/errors"

var ErrInvalidTransition = errors.New("invalid review transition")

// transitions lists, for each review status, the statuses a reviewer may move to.
var transitions = map[Status][]Status{
	StatusNew:      {StatusFeedback, StatusApproved, StatusRejected},
	StatusFeedback: {StatusApproved, StatusRejected},
	StatusApproved: {StatusFeedback, StatusRejected},
	StatusRejected: {StatusFeedback, StatusApproved},
}

// CanTransition reports whether a submission may move from one review status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PostStatusFor derives the publication status from the review status.
func PostStatusFor(s Status) PostStatus {
	switch s {
	case StatusApproved:
		return PostStatusPublish
	case StatusRejected:
		return PostStatusTrash
	default:
		return PostStatusDraft
	}
}

// transition moves r to `to`, recording the reviewer.
func (r *Resource) transition(to Status, reviewerID string) error {
	from := r.Status
	if from == "" {
		from = StatusNew
	}
	if !CanTransition(from, to) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}
	r.Status = to
	r.PostStatus = PostStatusFor(to)
	if reviewerID != "" {
		r.ReviewerID.SetValid(reviewerID)
	}
	return nil
}

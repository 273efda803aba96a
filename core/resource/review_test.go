package resource

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestResource_transition(t *testing.T) {
	tests := []struct {
		from           Status
		to             Status
		wantErr        bool
		wantPostStatus PostStatus
	}{
		{from: StatusNew, to: StatusFeedback, wantPostStatus: PostStatusDraft},
		{from: StatusNew, to: StatusApproved, wantPostStatus: PostStatusPublish},
		{from: StatusNew, to: StatusRejected, wantPostStatus: PostStatusTrash},
		{from: StatusFeedback, to: StatusApproved, wantPostStatus: PostStatusPublish},
		{from: StatusFeedback, to: StatusRejected, wantPostStatus: PostStatusTrash},
		{from: StatusApproved, to: StatusFeedback, wantPostStatus: PostStatusDraft},
		{from: StatusApproved, to: StatusRejected, wantPostStatus: PostStatusTrash},
		{from: StatusRejected, to: StatusFeedback, wantPostStatus: PostStatusDraft},
		{from: StatusRejected, to: StatusApproved, wantPostStatus: PostStatusPublish},
		{from: "", to: StatusApproved, wantPostStatus: PostStatusPublish},

		{from: StatusNew, to: StatusNew, wantErr: true},
		{from: StatusApproved, to: StatusApproved, wantErr: true},
		{from: StatusFeedback, to: StatusNew, wantErr: true},
		{from: StatusApproved, to: StatusNew, wantErr: true},
		{from: StatusNew, to: "published", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			r := Resource{Status: tt.from, PostStatus: PostStatusDraft}
			err := r.transition(tt.to, "reviewer-id")
			if tt.wantErr {
				assert.Equal(t, ErrInvalidTransition, errors.Cause(err))
				assert.Equal(t, tt.from, r.Status)
				assert.False(t, r.ReviewerID.Valid)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.to, r.Status)
				assert.Equal(t, tt.wantPostStatus, r.PostStatus)
				assert.Equal(t, "reviewer-id", r.ReviewerID.String)
			}
		})
	}
}

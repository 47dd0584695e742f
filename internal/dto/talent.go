package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/sipodi-api/internal/models"
)

// CreateTalentRequest submits a new talent. Detail is decoded against TalentType.
type CreateTalentRequest struct {
	TalentType models.TalentKind `json:"talent_type" validate:"required"`
	Detail     json.RawMessage   `json:"detail" validate:"required"`
	UploadID   *string           `json:"upload_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateTalentRequest edits a pending talent. The kind cannot change.
type UpdateTalentRequest struct {
	Detail   json.RawMessage `json:"detail,omitempty"`
	UploadID *string         `json:"upload_id,omitempty" validate:"omitempty,uuid"`
}

// TalentQuery mirrors supported listing filters.
type TalentQuery struct {
	TalentType string `form:"talent_type"`
	Status     string `form:"status"`
	SchoolID   string `form:"school_id"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// RejectTalentRequest carries the mandatory reason.
type RejectTalentRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

// BatchApproveRequest lists talents to approve.
type BatchApproveRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100"`
}

// BatchRejectRequest lists talents to reject with one shared reason.
type BatchRejectRequest struct {
	IDs             []string `json:"ids" validate:"required,min=1,max=100"`
	RejectionReason string   `json:"rejection_reason"`
}

// FailedItem explains why one id of a batch was not decided.
type FailedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult reports per-id outcomes. Exactly one of the count fields is populated.
type BatchResult struct {
	ApprovedCount *int         `json:"approved_count,omitempty"`
	RejectedCount *int         `json:"rejected_count,omitempty"`
	FailedCount   int          `json:"failed_count"`
	FailedIDs     []FailedItem `json:"failed_ids"`
}

// Succeeded returns the populated success counter.
func (r *BatchResult) Succeeded() int {
	switch {
	case r.ApprovedCount != nil:
		return *r.ApprovedCount
	case r.RejectedCount != nil:
		return *r.RejectedCount
	}
	return 0
}

// UserRef is a compact person reference.
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// SchoolRef is a compact school reference.
type SchoolRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	NPSN string `json:"npsn,omitempty"`
}

// Submitter holds denormalised display fields of the talent owner.
type Submitter struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	SchoolID   *string `json:"school_id,omitempty"`
	SchoolName *string `json:"school_name,omitempty"`
}

// Attachment references the confirmed upload backing a talent.
type Attachment struct {
	URL      string  `json:"url"`
	UploadID *string `json:"upload_id,omitempty"`
}

// DecisionInfo is present once a talent left pending.
type DecisionInfo struct {
	Reviewer  UserRef   `json:"reviewer"`
	DecidedAt time.Time `json:"decided_at"`
	Reason    *string   `json:"reason,omitempty"`
}

// TalentResponse is the API view of a talent.
type TalentResponse struct {
	ID         string              `json:"id"`
	Submitter  Submitter           `json:"submitter"`
	TalentType models.TalentKind   `json:"talent_type"`
	Status     models.TalentStatus `json:"status"`
	Detail     models.TalentDetail `json:"detail"`
	Attachment *Attachment         `json:"attachment,omitempty"`
	Decision   *DecisionInfo       `json:"decision,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// UnmarshalJSON restores the concrete detail variant from talent_type so cached responses
// round-trip.
func (r *TalentResponse) UnmarshalJSON(data []byte) error {
	type plain TalentResponse
	aux := struct {
		*plain
		Detail json.RawMessage `json:"detail"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Detail) == 0 || string(aux.Detail) == "null" {
		r.Detail = nil
		return nil
	}
	detail, err := models.LoadTalentDetail(r.TalentType, aux.Detail)
	if err != nil {
		return err
	}
	r.Detail = detail
	return nil
}

// NewTalentResponse maps a stored talent with its decoded detail.
func NewTalentResponse(t *models.Talent, detail models.TalentDetail) TalentResponse {
	resp := TalentResponse{
		ID: t.ID,
		Submitter: Submitter{
			ID:         t.UserID,
			FullName:   t.SubmitterName,
			SchoolID:   t.SchoolID,
			SchoolName: t.SchoolName,
		},
		TalentType: t.Kind,
		Status:     t.Status,
		Detail:     detail,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.AttachmentURL != nil {
		resp.Attachment = &Attachment{URL: *t.AttachmentURL, UploadID: t.AttachmentUploadID}
	}
	if t.Status.Terminal() && t.VerifiedBy != nil && t.VerifiedAt != nil {
		reviewer := UserRef{ID: *t.VerifiedBy}
		if t.ReviewerName != nil {
			reviewer.FullName = *t.ReviewerName
		}
		resp.Decision = &DecisionInfo{Reviewer: reviewer, DecidedAt: *t.VerifiedAt}
		if t.Status == models.TalentStatusRejected {
			resp.Decision.Reason = t.RejectionReason
		}
	}
	return resp
}

package models

import (
	"errors"
	"strings"
	"time"
)

// TalentKind selects the detail payload of a submission. It never changes after creation.
type TalentKind string

const (
	KindTraining               TalentKind = "peserta_pelatihan"
	KindCompetitionMentor      TalentKind = "pembimbing_lomba"
	KindCompetitionParticipant TalentKind = "peserta_lomba"
	KindInterest               TalentKind = "minat_bakat"
)

// TalentKinds lists every kind in display order.
var TalentKinds = []TalentKind{KindTraining, KindCompetitionMentor, KindCompetitionParticipant, KindInterest}

// Valid reports whether k is a known kind.
func (k TalentKind) Valid() bool {
	_, ok := newDetail(k)
	return ok
}

// Label is the Indonesian display name used in exports.
func (k TalentKind) Label() string {
	switch k {
	case KindTraining:
		return "Peserta Pelatihan"
	case KindCompetitionMentor:
		return "Pembimbing Lomba"
	case KindCompetitionParticipant:
		return "Peserta Lomba"
	case KindInterest:
		return "Minat Bakat"
	}
	return string(k)
}

// TalentStatus is the approval state of a submission.
type TalentStatus string

const (
	TalentStatusPending  TalentStatus = "pending"
	TalentStatusApproved TalentStatus = "approved"
	TalentStatusRejected TalentStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s TalentStatus) Valid() bool {
	switch s {
	case TalentStatusPending, TalentStatusApproved, TalentStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TalentStatus) Terminal() bool {
	return s == TalentStatusApproved || s == TalentStatusRejected
}

var (
	// ErrNotPending is returned when a transition is attempted on a decided submission.
	ErrNotPending = errors.New("talent already decided")
	// ErrReasonRequired is returned when a rejection has a blank reason.
	ErrReasonRequired = errors.New("rejection_reason is required")
	// ErrInvalidOutcome is returned for a decision that is neither approve nor reject.
	ErrInvalidOutcome = errors.New("decision outcome must be approved or rejected")
)

// Decision is a reviewer's verdict on a pending submission.
type Decision struct {
	Outcome    TalentStatus
	ReviewerID string
	Reason     string
	At         time.Time
}

// Approval builds an approve decision.
func Approval(reviewerID string, at time.Time) Decision {
	return Decision{Outcome: TalentStatusApproved, ReviewerID: reviewerID, At: at}
}

// Rejection builds a reject decision with a trimmed reason.
func Rejection(reviewerID, reason string, at time.Time) Decision {
	return Decision{Outcome: TalentStatusRejected, ReviewerID: reviewerID, Reason: strings.TrimSpace(reason), At: at}
}

// Validate checks the decision independently of any stored state.
func (d Decision) Validate() error {
	switch d.Outcome {
	case TalentStatusApproved:
		return nil
	case TalentStatusRejected:
		if strings.TrimSpace(d.Reason) == "" {
			return ErrReasonRequired
		}
		return nil
	}
	return ErrInvalidOutcome
}

// Decide applies d to current. Only pending submissions move, and only to approved or rejected.
func Decide(current TalentStatus, d Decision) (TalentStatus, error) {
	if err := d.Validate(); err != nil {
		return current, err
	}
	if current != TalentStatusPending {
		return current, ErrNotPending
	}
	return d.Outcome, nil
}

// Talent is a row of the talents table joined with display fields.
type Talent struct {
	ID                 string       `db:"id"`
	UserID             string       `db:"user_id"`
	Kind               TalentKind   `db:"kind"`
	DetailJSON         []byte       `db:"detail"`
	AttachmentURL      *string      `db:"attachment_url"`
	AttachmentUploadID *string      `db:"attachment_upload_id"`
	Status             TalentStatus `db:"status"`
	VerifiedBy         *string      `db:"verified_by"`
	VerifiedAt         *time.Time   `db:"verified_at"`
	RejectionReason    *string      `db:"rejection_reason"`
	CreatedAt          time.Time    `db:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at"`

	SubmitterName string  `db:"submitter_name"`
	SchoolID      *string `db:"school_id"`
	SchoolName    *string `db:"school_name"`
	ReviewerName  *string `db:"reviewer_name"`
}

// Detail decodes the stored payload.
func (t *Talent) Detail() (TalentDetail, error) {
	return LoadTalentDetail(t.Kind, t.DetailJSON)
}

// TalentFilter constrains talent listing queries. Scope fields are set from the actor, never
// from request input.
type TalentFilter struct {
	Kind     *TalentKind
	Status   *TalentStatus
	SchoolID *string
	UserID   *string
	Search   string
	Page     int
	PageSize int
}

// TalentEventType enumerates entries of the append-only talent history.
type TalentEventType string

const (
	TalentEventCreated  TalentEventType = "created"
	TalentEventEdited   TalentEventType = "edited"
	TalentEventApproved TalentEventType = "approved"
	TalentEventRejected TalentEventType = "rejected"
	TalentEventDeleted  TalentEventType = "deleted"
)

// TalentEvent records one lifecycle step. Rows survive deletion of the talent.
type TalentEvent struct {
	ID        string          `db:"id" json:"id"`
	TalentID  string          `db:"talent_id" json:"talent_id"`
	ActorID   string          `db:"actor_id" json:"actor_id"`
	ActorName *string         `db:"actor_name" json:"actor_name,omitempty"`
	Type      TalentEventType `db:"type" json:"type"`
	Status    TalentStatus    `db:"status" json:"status"`
	Reason    *string         `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

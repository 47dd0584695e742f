package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TalentKind selects the detail variant of a talent.
type TalentKind string

const (
	KindTraining               TalentKind = "peserta_pelatihan"
	KindCompetitionMentor      TalentKind = "pembimbing_lomba"
	KindCompetitionParticipant TalentKind = "peserta_lomba"
	KindInterest               TalentKind = "minat_bakat"
)

// TalentStatus is the approval state of a talent.
type TalentStatus string

const (
	StatusPending  TalentStatus = "pending"
	StatusApproved TalentStatus = "approved"
	StatusRejected TalentStatus = "rejected"
)

// Submitter holds the display fields of the talent owner.
type Submitter struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	SchoolID   *string `json:"school_id,omitempty"`
	SchoolName *string `json:"school_name,omitempty"`
}

// Reviewer identifies who decided a talent.
type Reviewer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// Decision is present once a talent left pending.
type Decision struct {
	Reviewer  Reviewer  `json:"reviewer"`
	DecidedAt time.Time `json:"decided_at"`
	Reason    *string   `json:"reason,omitempty"`
}

// Attachment references the confirmed upload of a talent.
type Attachment struct {
	URL      string  `json:"url"`
	UploadID *string `json:"upload_id,omitempty"`
}

// Talent is a submission as returned by the API. Detail keeps the raw variant payload; use
// DecodeDetail with the struct matching TalentType.
type Talent struct {
	ID         string          `json:"id"`
	Submitter  Submitter       `json:"submitter"`
	TalentType TalentKind      `json:"talent_type"`
	Status     TalentStatus    `json:"status"`
	Detail     json.RawMessage `json:"detail"`
	Attachment *Attachment     `json:"attachment,omitempty"`
	Decision   *Decision       `json:"decision,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DecodeDetail unmarshals the detail payload into out.
func (t *Talent) DecodeDetail(out interface{}) error {
	return json.Unmarshal(t.Detail, out)
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// TalentPage is one page of talents.
type TalentPage struct {
	Items      []Talent
	Pagination Pagination
}

// TalentFilter narrows a talent listing. Zero values are omitted.
type TalentFilter struct {
	Kind     TalentKind
	Status   TalentStatus
	SchoolID string
	Search   string
	Page     int
	PageSize int
}

func (f TalentFilter) values() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("talent_type", string(f.Kind))
	set("status", string(f.Status))
	set("school_id", f.SchoolID)
	set("search", f.Search)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

// CreateTalentInput submits a talent. Detail is any value that marshals to the variant
// payload of Kind.
type CreateTalentInput struct {
	Kind     TalentKind  `json:"talent_type"`
	Detail   interface{} `json:"detail"`
	UploadID *string     `json:"upload_id,omitempty"`
}

// EditTalentInput changes the detail and/or attachment of a pending talent.
type EditTalentInput struct {
	Detail   interface{} `json:"detail,omitempty"`
	UploadID *string     `json:"upload_id,omitempty"`
}

// FailedItem explains why one id of a batch was not decided.
type FailedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult reports per-id outcomes of a batch decision. Partial failure is not an error.
type BatchResult struct {
	ApprovedCount *int         `json:"approved_count,omitempty"`
	RejectedCount *int         `json:"rejected_count,omitempty"`
	FailedCount   int          `json:"failed_count"`
	FailedIDs     []FailedItem `json:"failed_ids"`
}

// Succeeded returns the number of ids that were decided.
func (r BatchResult) Succeeded() int {
	switch {
	case r.ApprovedCount != nil:
		return *r.ApprovedCount
	case r.RejectedCount != nil:
		return *r.RejectedCount
	}
	return 0
}

// CreateTalent submits a new pending talent.
func (c *Client) CreateTalent(ctx context.Context, in CreateTalentInput) (*Talent, error) {
	return c.talent(ctx, http.MethodPost, "/talents", in)
}

// EditTalent updates a pending talent owned by the caller.
func (c *Client) EditTalent(ctx context.Context, id string, in EditTalentInput) (*Talent, error) {
	return c.talent(ctx, http.MethodPut, "/talents/"+url.PathEscape(id), in)
}

// DeleteTalent removes a pending talent owned by the caller.
func (c *Client) DeleteTalent(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/talents/"+url.PathEscape(id), nil, nil)
	return err
}

// GetTalent fetches one talent visible to the caller.
func (c *Client) GetTalent(ctx context.Context, id string) (*Talent, error) {
	return c.talent(ctx, http.MethodGet, "/talents/"+url.PathEscape(id), nil)
}

// ListTalents lists talents within the caller's role scope.
func (c *Client) ListTalents(ctx context.Context, filter TalentFilter) (*TalentPage, error) {
	return c.talentPage(ctx, "/talents", filter)
}

// ListMyTalents lists the caller's own talents.
func (c *Client) ListMyTalents(ctx context.Context, filter TalentFilter) (*TalentPage, error) {
	return c.talentPage(ctx, "/me/talents", filter)
}

// Approve moves a pending talent to approved.
func (c *Client) Approve(ctx context.Context, id string) (*Talent, error) {
	return c.talent(ctx, http.MethodPost, "/verifications/talents/"+url.PathEscape(id)+"/approve", nil)
}

// Reject moves a pending talent to rejected. The server refuses a blank reason.
func (c *Client) Reject(ctx context.Context, id, reason string) (*Talent, error) {
	body := map[string]string{"rejection_reason": reason}
	return c.talent(ctx, http.MethodPost, "/verifications/talents/"+url.PathEscape(id)+"/reject", body)
}

// BatchApprove approves each id independently.
func (c *Client) BatchApprove(ctx context.Context, ids []string) (BatchResult, error) {
	return c.batch(ctx, "/verifications/talents/batch/approve", map[string]interface{}{"ids": ids})
}

// BatchReject rejects each id independently with one shared reason.
func (c *Client) BatchReject(ctx context.Context, ids []string, reason string) (BatchResult, error) {
	return c.batch(ctx, "/verifications/talents/batch/reject", map[string]interface{}{
		"ids":              ids,
		"rejection_reason": reason,
	})
}

func (c *Client) talent(ctx context.Context, method, path string, in interface{}) (*Talent, error) {
	env, err := c.call(ctx, method, path, nil, in)
	if err != nil {
		return nil, err
	}
	var talent Talent
	if err := env.decode(&talent); err != nil {
		return nil, err
	}
	return &talent, nil
}

func (c *Client) talentPage(ctx context.Context, path string, filter TalentFilter) (*TalentPage, error) {
	env, err := c.call(ctx, http.MethodGet, path, filter.values(), nil)
	if err != nil {
		return nil, err
	}
	page := &TalentPage{Items: []Talent{}}
	if err := env.decode(&page.Items); err != nil {
		return nil, err
	}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	}
	return page, nil
}

func (c *Client) batch(ctx context.Context, path string, in interface{}) (BatchResult, error) {
	env, err := c.call(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	if err := env.decode(&result); err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

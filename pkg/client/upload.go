package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// UploadPurpose names what an upload is for. The server bounds size and type per purpose.
type UploadPurpose string

const (
	PurposeProfilePhoto      UploadPurpose = "profile_photo"
	PurposeTalentCertificate UploadPurpose = "talent_certificate"
)

// UploadState is the position of an Upload in its pipeline.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadPresigned
	UploadTransferring
	UploadConfirmed
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadPresigned:
		return "presigned"
	case UploadTransferring:
		return "transferring"
	case UploadConfirmed:
		return "confirmed"
	case UploadFailed:
		return "failed"
	}
	return fmt.Sprintf("UploadState(%d)", int(s))
}

// Finished reports whether no further transition is possible.
func (s UploadState) Finished() bool {
	return s == UploadConfirmed || s == UploadFailed
}

// ProgressFunc receives the number of bytes sent so far and the total size.
type ProgressFunc func(sent, total int64)

// UploadFile describes the bytes to upload. Body must yield exactly Size bytes.
type UploadFile struct {
	Filename    string
	Size        int64
	ContentType string
	Purpose     UploadPurpose
	Body        io.Reader
}

// Presign is the server's answer to a presign request.
type Presign struct {
	UploadID     string            `json:"upload_id"`
	PresignedURL string            `json:"presigned_url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	ExpiresIn    int               `json:"expires_in"`
	ExpiresAt    time.Time         `json:"expires_at"`
	MaxSize      int64             `json:"max_size"`
	AllowedTypes []string          `json:"allowed_types"`
}

// UploadResult is a confirmed upload. UploadID may now be attached to a talent or profile.
type UploadResult struct {
	UploadID    string `json:"upload_id"`
	FileURL     string `json:"file_url"`
	Filename    string `json:"filename"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

type presignRequest struct {
	Filename    string        `json:"filename"`
	Size        int64         `json:"size"`
	ContentType string        `json:"content_type"`
	UploadType  UploadPurpose `json:"upload_type"`
}

// Upload drives one file through presign, direct transfer and confirm. Each step runs at
// most once and only after the previous one succeeded; any failure moves the pipeline to
// UploadFailed and a new Upload has to be started.
type Upload struct {
	client   *Client
	file     UploadFile
	progress ProgressFunc

	mu          sync.Mutex
	state       UploadState
	busy        bool
	transferred bool
	presign     *Presign
	result      *UploadResult
	err         error
}

// NewUpload prepares a pipeline for file. progress may be nil.
func (c *Client) NewUpload(file UploadFile, progress ProgressFunc) *Upload {
	return &Upload{client: c, file: file, progress: progress}
}

// State returns the current pipeline state.
func (u *Upload) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Err returns the failure that moved the pipeline to UploadFailed.
func (u *Upload) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Result returns the confirmed upload, or nil before confirmation.
func (u *Upload) Result() *UploadResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.result
}

// Run executes all three steps in order.
func (u *Upload) Run(ctx context.Context) (*UploadResult, error) {
	if _, err := u.Presign(ctx); err != nil {
		return nil, err
	}
	if err := u.Transfer(ctx); err != nil {
		return nil, err
	}
	return u.Confirm(ctx)
}

// Presign requests the direct write location. Idle -> Presigned.
func (u *Upload) Presign(ctx context.Context) (*Presign, error) {
	if err := u.advance(UploadIdle, UploadIdle, "presign"); err != nil {
		return nil, err
	}
	if u.file.Body == nil {
		return nil, u.fail(&ValidationError{APIError{
			Code:    "VALIDATION_ERROR",
			Message: "upload body is required",
			Details: []FieldError{{Field: "file", Message: "file is required"}},
		}})
	}

	env, err := u.client.call(ctx, http.MethodPost, "/uploads/presign", nil, presignRequest{
		Filename:    u.file.Filename,
		Size:        u.file.Size,
		ContentType: u.file.ContentType,
		UploadType:  u.file.Purpose,
	})
	if err != nil {
		return nil, u.fail(err)
	}
	var presign Presign
	if err := env.decode(&presign); err != nil {
		return nil, u.fail(err)
	}
	if presign.UploadID == "" || presign.PresignedURL == "" {
		return nil, u.fail(errors.New("client: presign returned no upload target"))
	}
	if presign.Method == "" {
		presign.Method = http.MethodPut
	}

	u.mu.Lock()
	u.presign = &presign
	u.state = UploadPresigned
	u.busy = false
	u.mu.Unlock()
	return &presign, nil
}

// Transfer writes the bytes straight to the presigned URL. Presigned -> Transferring. A
// failure is a *TransferError and the pipeline never reaches confirm.
func (u *Upload) Transfer(ctx context.Context) error {
	if err := u.advance(UploadPresigned, UploadTransferring, "transfer"); err != nil {
		return err
	}

	u.mu.Lock()
	presign := *u.presign
	u.mu.Unlock()

	body := &progressReader{r: u.file.Body, total: u.file.Size, report: u.progress}
	req, err := http.NewRequestWithContext(ctx, presign.Method, presign.PresignedURL, body)
	if err != nil {
		return u.fail(&TransferError{Err: err})
	}
	req.ContentLength = u.file.Size
	for key, value := range presign.Headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && u.file.ContentType != "" {
		req.Header.Set("Content-Type", u.file.ContentType)
	}

	resp, err := u.client.transfer.Do(req)
	if err != nil {
		return u.fail(&TransferError{Err: err})
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return u.fail(&TransferError{StatusCode: resp.StatusCode})
	}

	u.mu.Lock()
	u.transferred = true
	u.busy = false
	u.mu.Unlock()
	return nil
}

// Confirm tells the server the bytes are in place. Transferring -> Confirmed.
func (u *Upload) Confirm(ctx context.Context) (*UploadResult, error) {
	u.mu.Lock()
	if u.state != UploadTransferring || !u.transferred || u.busy {
		state := u.state
		u.mu.Unlock()
		return nil, fmt.Errorf("%w: confirm from %s", ErrUploadState, state)
	}
	u.busy = true
	id := u.presign.UploadID
	u.mu.Unlock()

	env, err := u.client.call(ctx, http.MethodPost, "/uploads/"+url.PathEscape(id)+"/confirm", nil, nil)
	if err != nil {
		return nil, u.fail(err)
	}
	var result UploadResult
	if err := env.decode(&result); err != nil {
		return nil, u.fail(err)
	}

	u.mu.Lock()
	u.result = &result
	u.state = UploadConfirmed
	u.busy = false
	u.mu.Unlock()
	return &result, nil
}

// advance checks the pipeline is idle in from, then moves it to to and marks a step in
// flight.
func (u *Upload) advance(from, to UploadState, op string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != from || u.busy {
		return fmt.Errorf("%w: %s from %s", ErrUploadState, op, u.state)
	}
	u.state = to
	u.busy = true
	return nil
}

func (u *Upload) fail(err error) error {
	u.mu.Lock()
	u.state = UploadFailed
	u.busy = false
	u.err = err
	u.mu.Unlock()
	return err
}

// CancelUpload discards an upload session that will not be attached.
func (c *Client) CancelUpload(ctx context.Context, uploadID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/uploads/"+url.PathEscape(uploadID), nil, nil)
	return err
}

type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.report != nil {
			p.report(p.sent, p.total)
		}
	}
	return n, err
}

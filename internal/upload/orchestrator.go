// Package upload drives one claim upload: local validation, presign,
// direct-to-storage transfer, then a delayed refresh of the claim list.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/api"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/config"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/logger"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/s3io"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/validate"
)

// State is the position of an attempt in the upload state machine.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateRequestingAuthorization
	StateTransferring
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRequestingAuthorization:
		return "requesting-authorization"
	case StateTransferring:
		return "transferring"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Presigner requests upload authorizations. *api.Client satisfies it.
type Presigner interface {
	Presign(ctx context.Context, req api.PresignRequest) (*api.PresignResponse, error)
}

// Refresher re-lists claims. *directory.Directory satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs fn once after d.
type Scheduler func(d time.Duration, fn func())

// AfterFunc schedules with time.AfterFunc.
func AfterFunc(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

// Result describes a finished attempt.
type Result struct {
	AttemptID string
	ClaimID   string
	S3Key     string
	Tags      []string
	State     State
	Err       error
	Message   string
}

// Orchestrator runs at most one upload attempt at a time.
type Orchestrator struct {
	presigner Presigner
	storage   s3io.Doer
	refresher Refresher
	delay     time.Duration
	schedule  Scheduler
	now       func() time.Time
	log       *slog.Logger

	busy atomic.Bool

	mu    sync.Mutex
	state State
	msg   string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRefreshDelay sets how long to wait before refreshing after a success.
func WithRefreshDelay(d time.Duration) Option { return func(o *Orchestrator) { o.delay = d } }

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option { return func(o *Orchestrator) { o.schedule = s } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New wires an orchestrator. refresher may be nil when nothing needs to be
// refreshed after an upload.
func New(p Presigner, storage s3io.Doer, refresher Refresher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		presigner: p,
		storage:   storage,
		refresher: refresher,
		delay:     config.DefaultRefreshDelay,
		schedule:  AfterFunc,
		now:       time.Now,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the state of the current or last attempt.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Message returns the status line for the current or last attempt.
func (o *Orchestrator) Message() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.msg
}

// Busy reports whether an attempt is in flight. The submit affordance must
// be disabled while it is true.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

func (o *Orchestrator) set(s State, msg string) {
	o.mu.Lock()
	o.state, o.msg = s, msg
	o.mu.Unlock()
}

// Submit runs one attempt for form. A call made while another attempt is in
// flight returns apierr.ErrBusy without touching the network. On success
// the form is reset and one refresh is scheduled.
func (o *Orchestrator) Submit(ctx context.Context, form *Form) (Result, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return Result{State: o.State(), Err: apierr.ErrBusy, Message: apierr.ErrBusy.Error()}, apierr.ErrBusy
	}
	defer o.busy.Store(false)

	res := Result{AttemptID: logger.NewRequestID()}
	ctx = logger.WithRequestID(ctx, res.AttemptID)
	fail := func(err error) (Result, error) {
		res.State, res.Err, res.Message = StateFailed, err, apierr.Message(err)
		o.set(StateFailed, res.Message)
		o.log.WarnContext(ctx, "upload failed", "claim_id", res.ClaimID, "error", err)
		return res, err
	}

	o.set(StateValidating, "")
	if err := checkForm(form); err != nil {
		return fail(err)
	}
	file := form.File
	client := strings.TrimSpace(form.Client)
	res.Tags = validate.ParseTags(form.Tags)
	contentType := form.ContentType
	if contentType == "" {
		contentType = s3io.ContentTypeText
	}

	o.set(StateRequestingAuthorization, "")
	auth, err := o.presigner.Presign(ctx, api.PresignRequest{
		Filename:    strings.TrimSpace(file.Name),
		Tags:        res.Tags,
		Client:      client,
		ContentType: contentType,
	})
	if err != nil {
		return fail(err)
	}
	received := o.now()
	if auth.PresignedURL == "" {
		return fail(fmt.Errorf("%w: presign response has no presigned_url", apierr.ErrMalformedResponse))
	}
	res.ClaimID, res.S3Key = auth.ClaimID, auth.S3Key
	if err := s3io.CheckKey(auth.S3Key, auth.ClaimID); err != nil {
		o.log.WarnContext(ctx, "presign returned unexpected key", "claim_id", auth.ClaimID, "error", err)
	}

	o.set(StateTransferring, "")
	var transferOpts []s3io.TransferOption
	if auth.ExpiresIn > 0 {
		transferOpts = append(transferOpts, s3io.WithExpiry(received.Add(time.Duration(auth.ExpiresIn)*time.Second), o.now))
	}
	if auth.ContentType != "" {
		contentType = auth.ContentType
	}
	size := file.Size
	if size <= 0 {
		size = -1
	}
	put := s3io.PutRequest(auth.PresignedURL, s3io.UploadHeaders(auth.UploadHeaders, contentType))
	if err := s3io.Transfer(ctx, o.storage, put, file.Body, size, transferOpts...); err != nil {
		return fail(err)
	}

	form.Reset()
	res.State, res.Message = StateDone, "Upload complete (refresh may take a moment)…"
	o.set(StateDone, res.Message)
	o.log.InfoContext(ctx, "upload complete", "claim_id", res.ClaimID, "s3_key", res.S3Key, "size_bytes", file.Size)

	if o.refresher != nil {
		rctx := context.WithoutCancel(ctx)
		o.schedule(o.delay, func() {
			if err := o.refresher.Refresh(rctx); err != nil {
				o.log.WarnContext(rctx, "post-upload refresh failed", "error", err)
			}
		})
	}
	return res, nil
}

func checkForm(form *Form) error {
	if form == nil || form.File == nil {
		return apierr.Invalid("file", "Choose a .txt file")
	}
	if err := validate.FilenameTxt(form.File.Name); err != nil {
		return err
	}
	return validate.ClientOK(form.Client)
}

// Package directory holds the client's view of the claim list. Every refresh
// replaces the cached list wholesale; filtering runs over the cache.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/api"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/authz"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/logger"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/models"
)

// Lister fetches the caller's claims. *api.Client satisfies it.
type Lister interface {
	ListClaims(ctx context.Context) (*api.ListResponse, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) (*api.ListResponse, error)

func (f ListerFunc) ListClaims(ctx context.Context) (*api.ListResponse, error) { return f(ctx) }

// Directory caches the last fetched claim list. The list is small (one
// user's claims), so there is no paging and no incremental sync.
type Directory struct {
	lister Lister
	tokens authz.TokenSource
	log    *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	claims      []models.Claim
	userID      string
	inflight    int
	lastErr     string
	refreshedAt time.Time
}

// Option customizes a Directory.
type Option func(*Directory)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(d *Directory) { d.log = l } }

// WithOwnerCheck makes Refresh warn when the backend reports a different
// owner than the token subject.
func WithOwnerCheck(src authz.TokenSource) Option { return func(d *Directory) { d.tokens = src } }

// New returns an empty directory backed by l.
func New(l Lister, opts ...Option) *Directory {
	d := &Directory{lister: l, log: logger.Discard(), now: time.Now, claims: []models.Claim{}}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Refresh lists claims and replaces the cache on success. On failure the
// cache is left alone and the message is kept for display. The loading flag
// is cleared in both cases. Concurrent refreshes are allowed; whichever
// finishes last wins.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.inflight++
	d.mu.Unlock()

	resp, err := d.lister.ListClaims(ctx)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty claim list response", apierr.ErrMalformedResponse)
	}

	d.mu.Lock()
	d.inflight--
	if err != nil {
		d.lastErr = apierr.Message(err)
		d.mu.Unlock()
		d.log.WarnContext(ctx, "refresh claims failed", "error", err)
		return err
	}
	d.claims = cloneClaims(resp.Items)
	d.userID = resp.UserID
	d.lastErr = ""
	d.refreshedAt = d.now()
	d.mu.Unlock()

	d.log.DebugContext(ctx, "refreshed claims", "count", len(resp.Items), "user_id", resp.UserID)
	d.checkOwner(ctx, resp.UserID)
	return nil
}

func (d *Directory) checkOwner(ctx context.Context, userID string) {
	if d.tokens == nil || userID == "" {
		return
	}
	tok, err := d.tokens.Token(ctx)
	if err != nil {
		return
	}
	if sub := authz.Subject(tok); sub != "" && sub != userID {
		d.log.WarnContext(ctx, "claim list owner differs from token subject", "user_id", userID, "sub", sub)
	}
}

// Loading reports whether a fetch is outstanding.
func (d *Directory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.inflight > 0
}

// Err returns the message from the last failed refresh, or "".
func (d *Directory) Err() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// UserID returns the owner reported by the last successful refresh.
func (d *Directory) UserID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.userID
}

// RefreshedAt returns when the cache was last replaced.
func (d *Directory) RefreshedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshedAt
}

// Claims returns a copy of the cached list.
func (d *Directory) Claims() []models.Claim {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneClaims(d.claims)
}

// Filter returns copies of the cached claims matching search and status, in
// cache order. It never mutates the cache.
func (d *Directory) Filter(search, status string) []models.Claim {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneClaims(Filter(d.claims, search, status))
}

// StatusCounts counts cached claims per status.
func (d *Directory) StatusCounts() map[models.ClaimStatus]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[models.ClaimStatus]int)
	for _, c := range d.claims {
		out[c.Status]++
	}
	return out
}

// Filter selects claims whose filename, client or any tag contains search
// (case-insensitive) and whose status equals status. status "all" or ""
// matches everything. The result is a new slice.
func Filter(claims []models.Claim, search, status string) []models.Claim {
	q := strings.ToLower(search)
	out := make([]models.Claim, 0, len(claims))
	for _, c := range claims {
		if matchesStatus(c, status) && matchesSearch(c, q) {
			out = append(out, c)
		}
	}
	return out
}

// cloneClaims copies claims including their tag slices.
func cloneClaims(claims []models.Claim) []models.Claim {
	out := make([]models.Claim, len(claims))
	for i, c := range claims {
		c.Tags = slices.Clone(c.Tags)
		out[i] = c
	}
	return out
}

func matchesStatus(c models.Claim, status string) bool {
	return status == "" || status == models.StatusAll || string(c.Status) == status
}

func matchesSearch(c models.Claim, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Filename), q) || strings.Contains(strings.ToLower(c.Client), q) {
		return true
	}
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

package library

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Manager.
type Options struct {
	Ownership OwnershipRule
	Session   SessionOptions
	Logger    zerolog.Logger
}

// Manager is a thin façade over local storage, the session and the remote
// service, keeping CLI code simple.
type Manager struct {
	storage  Storage
	sessions *SessionStore
	backend  Backend
	pending  *PendingRatings
	rule     OwnershipRule
	logger   zerolog.Logger
	now      func() time.Time
}

// NewManager wires a Manager. It takes ownership of storage.
func NewManager(storage Storage, backend Backend, opts Options) *Manager {
	if opts.Ownership == "" {
		opts.Ownership = OwnershipByID
	}
	if opts.Session.Now == nil {
		opts.Session.Now = time.Now
	}
	opts.Session.Logger = opts.Logger
	return &Manager{
		storage:  storage,
		sessions: NewSessionStore(storage, opts.Session),
		backend:  backend,
		pending:  NewPendingRatings(storage),
		rule:     opts.Ownership,
		logger:   opts.Logger,
		now:      opts.Session.Now,
	}
}

// Close closes the underlying storage.
func (m *Manager) Close() error { return m.storage.Close() }

func (m *Manager) Storage() Storage                { return m.storage }
func (m *Manager) Sessions() *SessionStore         { return m.sessions }
func (m *Manager) OwnershipRule() OwnershipRule    { return m.rule }
func (m *Manager) PendingRatings() *PendingRatings { return m.pending }

// CurrentUser is the session user, or the guest.
func (m *Manager) CurrentUser(ctx context.Context) User { return m.sessions.Current(ctx) }

// ------------------ Catalog ------------------

// Catalog returns an unloaded catalog backed by the service.
func (m *Manager) Catalog() *Catalog { return NewCatalog(m.backend) }

// OpenBook starts the detail workflow for one book as the session user.
// The caller must Close it when leaving the page.
func (m *Manager) OpenBook(ctx context.Context, id string) *BookDetail {
	return NewBookDetail(id, m.CurrentUser(ctx), m.backend, m.backend,
		WithOwnershipRule(m.rule),
		WithDetailLogger(m.logger.With().Str("book_id", id).Logger()),
	)
}

// ------------------ Requests ------------------

// MyRequests lists the loan requests filed by the session user.
func (m *Manager) MyRequests(ctx context.Context) ([]LoanRequest, error) {
	user := m.CurrentUser(ctx)
	if user.IsGuest() {
		return nil, ErrLoginRequired
	}
	reqs, err := m.backend.ListRequests(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

// RateRequest submits form for an accepted loan. The rating is queued
// locally.
func (m *Manager) RateRequest(ctx context.Context, req LoanRequest, form *RatingForm) error {
	user := m.CurrentUser(ctx)
	if user.IsGuest() {
		return ErrLoginRequired
	}
	if req.RequesterID != user.ID {
		return fmt.Errorf("rate request %s: %w", req.ID, ErrForbidden)
	}
	if req.Status != RequestAccepted {
		return invalid("request", "only accepted loans can be rated")
	}
	err := form.Submit(m.pending.Handler(ctx, req.ID, req.BookTitle, user, m.now))
	if err != nil {
		return err
	}
	m.logger.Info().Str("request_id", req.ID).Int("stars", form.Stars()).Msg("rating queued")
	return nil
}

// ------------------ Profile ------------------

// UserRating fetches the aggregate shown on a profile. An empty id means the
// session user.
func (m *Manager) UserRating(ctx context.Context, userID string) (*UserRating, error) {
	if userID == "" {
		user := m.CurrentUser(ctx)
		if user.IsGuest() {
			return nil, ErrLoginRequired
		}
		userID = user.ID
	}
	r, err := m.backend.UserRating(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user rating %s: %w", userID, err)
	}
	if r.RatingDistribution == nil {
		summary := Summarize(r.Ratings)
		r.RatingDistribution = summary.RatingDistribution
	}
	return r, nil
}

// ------------------ Moderation ------------------

// Dashboard returns an unloaded reports dashboard for the session user.
func (m *Manager) Dashboard(ctx context.Context) *Dashboard {
	return NewDashboard(m.CurrentUser(ctx), m.backend)
}

// ------------------ Shell ------------------

func (m *Manager) Shell() *Shell { return NewShell(m.sessions, m.storage) }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-26s %-30s %-25s %-14s %-12s %s",
		b.ID, truncate(b.Title, 30), truncate(b.Author, 25), b.Category, b.Status.Label(), Stars(b.DisplayRating()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

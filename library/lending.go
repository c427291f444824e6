package library

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Phase is the loading state of a BookDetail.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoaded
)

// Overlay is the dialog currently open over a loaded book. At most one is
// open at a time; OverlayNone is plain viewing.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayRequest
	OverlayEdit
	OverlayDelete
)

func (o Overlay) String() string {
	switch o {
	case OverlayRequest:
		return "request"
	case OverlayEdit:
		return "edit"
	case OverlayDelete:
		return "delete"
	}
	return "viewing"
}

const (
	// HomePath is where a deleted listing sends the user.
	HomePath = "/"
	// DeleteRedirectDelay leaves the confirmation visible before leaving.
	DeleteRedirectDelay = 2 * time.Second

	ReportAcknowledgement = "Merci, le signalement a bien été pris en compte."
)

// Redirect tells the caller where to go once an action completed.
type Redirect struct {
	To    string
	After time.Duration
}

// DetailOption customises a BookDetail.
type DetailOption func(*BookDetail)

func WithOwnershipRule(rule OwnershipRule) DetailOption {
	return func(d *BookDetail) { d.rule = rule }
}

func WithDetailLogger(logger zerolog.Logger) DetailOption {
	return func(d *BookDetail) { d.logger = logger }
}

// WithIdempotencyKeys replaces the key generator used for loan requests.
func WithIdempotencyKeys(next func() string) DetailOption {
	return func(d *BookDetail) { d.newKey = next }
}

// BookDetail is the workflow behind a single book page: loading it, and the
// request, edit and delete dialogs. Results arriving after Close are
// dropped with ErrDetached instead of being applied.
type BookDetail struct {
	id       string
	user     User
	rule     OwnershipRule
	books    BookService
	requests RequestService
	newKey   func() string
	logger   zerolog.Logger

	life   context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	phase      Phase
	overlay    Overlay
	book       Book
	myRequests []LoanRequest
	busy       bool
	closed     bool
}

func NewBookDetail(id string, user User, books BookService, requests RequestService, opts ...DetailOption) *BookDetail {
	life, cancel := context.WithCancel(context.Background())
	d := &BookDetail{
		id:       id,
		user:     user,
		rule:     OwnershipByID,
		books:    books,
		requests: requests,
		newKey:   uuid.NewString,
		logger:   zerolog.Nop(),
		life:     life,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// bind returns a context cancelled by either the caller or Close.
func (d *BookDetail) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(d.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close detaches the workflow. In-flight calls are cancelled and their
// results discarded.
func (d *BookDetail) Close() {
	d.mu.Lock()
	d.closed = true
	d.overlay = OverlayNone
	d.mu.Unlock()
	d.cancel()
}

func (d *BookDetail) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Load fetches the book and, for a logged-in user, their own requests.
func (d *BookDetail) Load(ctx context.Context) error {
	ctx, done := d.bind(ctx)
	defer done()

	book, err := d.books.GetBook(ctx, d.id)
	if err != nil {
		return d.detachedOr(fmt.Errorf("load book %s: %w", d.id, err))
	}

	var mine []LoanRequest
	if !d.user.IsGuest() {
		mine, err = d.requests.ListRequests(ctx, d.user.ID)
		if err != nil {
			// The page stays usable without the request history.
			d.logger.Warn().Err(err).Str("user_id", d.user.ID).Msg("load own requests")
			mine = nil
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDetached
	}
	d.book = *book
	d.myRequests = mine
	d.phase = PhaseLoaded
	return nil
}

func (d *BookDetail) detachedOr(err error) error {
	if d.Closed() {
		return ErrDetached
	}
	return err
}

func (d *BookDetail) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

func (d *BookDetail) Overlay() Overlay {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlay
}

// Book returns the loaded book; ok is false while loading.
func (d *BookDetail) Book() (Book, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.book, d.phase == PhaseLoaded
}

// MyRequests returns the session user's requests known to this page.
func (d *BookDetail) MyRequests() []LoanRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]LoanRequest, len(d.myRequests))
	copy(out, d.myRequests)
	return out
}

// IsOwner reports whether the session user owns the loaded book.
func (d *BookDetail) IsOwner() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase == PhaseLoaded && d.rule.IsOwner(d.book, d.user)
}

// EditDefaults pre-fills the edit form from the loaded book.
func (d *BookDetail) EditDefaults() BookEdit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return BookEdit{
		Title:    d.book.Title,
		Author:   d.book.Author,
		Category: d.book.Category,
		Status:   d.book.Status,
	}
}

// ---------------------------------------------------------------------------
// Dialogs
// ---------------------------------------------------------------------------

func (d *BookDetail) open(target Overlay) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return ErrDetached
	case d.phase != PhaseLoaded:
		return ErrNotLoaded
	case d.overlay != OverlayNone:
		return ErrOverlayBusy
	}

	if err := d.permit(target); err != nil {
		return err
	}
	d.overlay = target
	return nil
}

// permit checks that the session user may use the target dialog on the
// loaded book. d.mu must be held.
func (d *BookDetail) permit(target Overlay) error {
	owner := d.rule.IsOwner(d.book, d.user)
	switch target {
	case OverlayRequest:
		if owner {
			return fmt.Errorf("request your own book: %w", ErrForbidden)
		}
		if d.book.Status != BookAvailable {
			return ErrBookUnavailable
		}
	case OverlayEdit, OverlayDelete:
		if !owner {
			return fmt.Errorf("manage a book you do not own: %w", ErrForbidden)
		}
	}
	return nil
}

func (d *BookDetail) OpenRequest() error { return d.open(OverlayRequest) }
func (d *BookDetail) OpenEdit() error    { return d.open(OverlayEdit) }
func (d *BookDetail) OpenDelete() error  { return d.open(OverlayDelete) }

// Cancel closes whatever dialog is open.
func (d *BookDetail) Cancel() {
	d.mu.Lock()
	d.overlay = OverlayNone
	d.mu.Unlock()
}

// begin checks that want is the open dialog and marks the page busy. The
// returned snapshot of the book is what the action works on.
func (d *BookDetail) begin(want Overlay) (Book, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.closed:
		return Book{}, ErrDetached
	case d.phase != PhaseLoaded:
		return Book{}, ErrNotLoaded
	case d.busy:
		return Book{}, ErrInFlight
	}
	if err := d.permit(want); err != nil {
		return Book{}, err
	}
	if d.overlay != want {
		return Book{}, fmt.Errorf("%s dialog is not open: %w", want, ErrOverlayClosed)
	}
	d.busy = true
	return d.book, nil
}

// commit clears the busy flag and, unless the page was closed meanwhile,
// applies the result under the lock.
func (d *BookDetail) commit(apply func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
	if d.closed {
		return ErrDetached
	}
	apply()
	return nil
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// SubmitLoanRequest sends the meeting proposal to the owner. A guest gets
// ErrLoginRequired before anything is sent.
func (d *BookDetail) SubmitLoanRequest(ctx context.Context, meeting MeetingDetails) (*LoanRequest, error) {
	if d.user.IsGuest() {
		return nil, ErrLoginRequired
	}
	if err := validateMeeting(meeting); err != nil {
		return nil, err
	}

	book, err := d.begin(OverlayRequest)
	if err != nil {
		return nil, err
	}

	req := LoanRequest{
		BookID:         book.ID,
		BookTitle:      book.Title,
		RequesterID:    d.user.ID,
		RequesterName:  d.user.Name,
		OwnerName:      book.DisplayOwner(),
		Status:         RequestPending,
		RequestDate:    meeting.Date,
		MeetingDetails: meeting,
	}

	callCtx, done := d.bind(ctx)
	created, err := d.requests.CreateRequest(callCtx, req, d.newKey())
	done()

	if cerr := d.commit(func() {
		if err == nil {
			d.myRequests = append(d.myRequests, *created)
			d.overlay = OverlayNone
		}
	}); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, fmt.Errorf("submit loan request: %w", err)
	}
	return created, nil
}

// Edit saves the owner's changes and replaces the local copy with the
// server's answer.
func (d *BookDetail) Edit(ctx context.Context, edit BookEdit) (*Book, error) {
	if err := ValidateBookEdit(edit); err != nil {
		return nil, err
	}
	book, err := d.begin(OverlayEdit)
	if err != nil {
		return nil, err
	}

	callCtx, done := d.bind(ctx)
	updated, err := d.books.UpdateBook(callCtx, book.ID, edit)
	done()

	if cerr := d.commit(func() {
		if err == nil {
			d.book = *updated
			d.overlay = OverlayNone
		}
	}); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, fmt.Errorf("edit book %s: %w", book.ID, err)
	}
	out := *updated
	return &out, nil
}

// Delete removes the listing. On success the page is closed and the caller
// should follow the returned redirect.
func (d *BookDetail) Delete(ctx context.Context) (Redirect, error) {
	book, err := d.begin(OverlayDelete)
	if err != nil {
		return Redirect{}, err
	}

	callCtx, done := d.bind(ctx)
	err = d.books.DeleteBook(callCtx, book.ID)
	done()

	if cerr := d.commit(func() {
		if err == nil {
			d.overlay = OverlayNone
			d.closed = true
		}
	}); cerr != nil {
		return Redirect{}, cerr
	}
	if err != nil {
		return Redirect{}, fmt.Errorf("delete book %s: %w", book.ID, err)
	}
	d.cancel()
	return Redirect{To: HomePath, After: DeleteRedirectDelay}, nil
}

// ReportProblem only acknowledges locally; nothing is sent.
func (d *BookDetail) ReportProblem() string {
	return ReportAcknowledgement
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func validateMeeting(m MeetingDetails) error {
	if strings.TrimSpace(m.Date) == "" {
		return invalid("date", "a meeting date is required")
	}
	if strings.TrimSpace(m.Location) == "" {
		return invalid("location", "a meeting place is required")
	}
	return nil
}

// ValidateBookEdit checks the four editable fields.
func ValidateBookEdit(e BookEdit) error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("title", "required")
	}
	if strings.TrimSpace(e.Author) == "" {
		return invalid("author", "required")
	}
	if !e.Category.Valid() {
		return invalid("category", fmt.Sprintf("unknown category %q", e.Category))
	}
	if !e.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", e.Status))
	}
	return nil
}

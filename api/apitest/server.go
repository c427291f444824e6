// Package apitest runs an in-memory BiblioFlow REST service for tests.
package apitest

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"biblioflow/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPayloadLimit is the request body size above which the fake answers
// 413, like the production service does for large inline covers.
const DefaultPayloadLimit = 8 << 20

// Hold parks matching calls until Release.
type Hold struct {
	Entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *Hold) Release() { h.once.Do(func() { close(h.release) }) }

type failure struct {
	status int
	body   string
}

// Server is the fake service. Routes are keyed as "METHOD /pattern", for
// example "POST /requests" or "GET /{id}".
type Server struct {
	URL string

	srv *httptest.Server

	mu            sync.Mutex
	books         []library.Book
	users         []library.User
	requests      []library.LoanRequest
	reports       []library.Report
	notifications []library.Notification
	ratings       map[string]library.UserRating
	idempotent    map[string]library.LoanRequest
	calls         map[string]int
	failures      map[string]failure
	holds         map[string]*Hold
	allHolds      []*Hold
	headers       []http.Header
	payloadLimit  int64
	now           func() time.Time
}

// New starts a fake bound to t's lifetime.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		ratings:      map[string]library.UserRating{},
		idempotent:   map[string]library.LoanRequest{},
		calls:        map[string]int{},
		failures:     map[string]failure{},
		holds:        map[string]*Hold{},
		payloadLimit: DefaultPayloadLimit,
		now:          time.Now,
	}
	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL
	t.Cleanup(func() {
		s.mu.Lock()
		for _, h := range s.allHolds {
			h.Release()
		}
		s.mu.Unlock()
		s.srv.Close()
	})
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)

	r.Route("/books", func(r chi.Router) {
		r.Get("/", s.listBooks)
		r.Post("/", s.createBook)
		r.Patch("/{id}", s.updateBook)
		r.Delete("/{id}", s.deleteBook)
	})
	r.Post("/auth/login", s.login)
	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.findUsers)
		r.Post("/", s.createUser)
	})
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", s.listRequests)
		r.Post("/", s.createRequest)
	})
	r.Get("/reports", s.listReports)
	r.Patch("/reports/{id}/status", s.updateReportStatus)
	r.Get("/notifications", s.listNotifications)
	r.Patch("/notifications/{id}/read", s.markRead)
	r.Get("/{id}", s.getBook)
	r.Get("/{id}/rating", s.userRating)
	return r
}

// intercept counts the call, then applies any injected failure or hold.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + routeKey(r.URL.Path)

		s.mu.Lock()
		s.calls[key]++
		s.headers = append(s.headers, r.Header.Clone())
		f, failing := s.failures[key]
		delete(s.failures, key)
		hold := s.holds[key]
		delete(s.holds, key)
		s.mu.Unlock()

		if hold != nil {
			close(hold.Entered)
			select {
			case <-hold.release:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeError(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var collections = map[string]bool{
	"auth": true, "books": true, "users": true, "requests": true, "reports": true, "notifications": true,
}

// routeKey maps a concrete path to its route pattern. A first segment that
// is not a collection is a root-level id, as in "/{id}/rating".
func routeKey(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case !collections[parts[0]]:
		parts[0] = "{id}"
	case len(parts) >= 2 && parts[0] != "auth":
		parts[1] = "{id}"
	}
	return "/" + strings.Join(parts, "/")
}

// ------------------ Test controls ------------------

// Calls returns how many times route was hit.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests received on any route.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Headers returns the headers of every request received, in order.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

// FailNext makes the next call on route answer status with body.
func (s *Server) FailNext(route string, status int, body string) {
	s.mu.Lock()
	s.failures[route] = failure{status: status, body: body}
	s.mu.Unlock()
}

// HoldNext parks the next call on route until the returned hold is released.
func (s *Server) HoldNext(route string) *Hold {
	h := &Hold{Entered: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[route] = h
	s.allHolds = append(s.allHolds, h)
	s.mu.Unlock()
	return h
}

func (s *Server) SetPayloadLimit(n int64) {
	s.mu.Lock()
	s.payloadLimit = n
	s.mu.Unlock()
}

// ------------------ Seeding ------------------

func newID() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:24] }

// AddBook stores b, assigning an id when it has none.
func (s *Server) AddBook(b library.Book) library.Book {
	if b.ID == "" {
		b.ID = newID()
	}
	if b.Status == "" {
		b.Status = library.BookAvailable
	}
	s.mu.Lock()
	s.books = append(s.books, b)
	s.mu.Unlock()
	return b
}

// AddUser stores u with its password, assigning an id when it has none.
func (s *Server) AddUser(u library.User) library.User {
	if u.ID == "" {
		u.ID = newID()
	}
	s.mu.Lock()
	s.users = append(s.users, u)
	s.mu.Unlock()
	return u
}

func (s *Server) AddRequest(r library.LoanRequest) library.LoanRequest {
	if r.ID == "" {
		r.ID = newID()
	}
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.mu.Unlock()
	return r
}

func (s *Server) AddReport(r library.Report) library.Report {
	if r.ID == "" {
		r.ID = newID()
	}
	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
	return r
}

func (s *Server) AddNotification(n library.Notification) library.Notification {
	if n.ID == "" {
		n.ID = newID()
	}
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()
	return n
}

func (s *Server) SetUserRating(userID string, r library.UserRating) {
	s.mu.Lock()
	s.ratings[userID] = r
	s.mu.Unlock()
}

// Book returns the stored book.
func (s *Server) Book(id string) (library.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.bookIndex(id)
	if i < 0 {
		return library.Book{}, false
	}
	return s.books[i], true
}

func (s *Server) Books() []library.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.Book(nil), s.books...)
}

func (s *Server) Requests() []library.LoanRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.LoanRequest(nil), s.requests...)
}

func (s *Server) Users() []library.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.User(nil), s.users...)
}

func (s *Server) bookIndex(id string) int {
	for i, b := range s.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// ------------------ Handlers ------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads the body within the payload limit. It writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	s.mu.Lock()
	limit := s.payloadLimit
	s.mu.Unlock()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request entity too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Books())
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Book(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Livre non trouvé")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var b library.Book
	if !s.decode(w, r, &b) {
		return
	}
	if b.Title == "" || b.Author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	b.ID = ""
	writeJSON(w, http.StatusCreated, s.AddBook(b))
}

func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	var edit library.BookEdit
	if !s.decode(w, r, &edit) {
		return
	}
	s.mu.Lock()
	i := s.bookIndex(chi.URLParam(r, "id"))
	if i < 0 {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Livre non trouvé")
		return
	}
	s.books[i].Title = edit.Title
	s.books[i].Author = edit.Author
	s.books[i].Category = edit.Category
	s.books[i].Status = edit.Status
	b := s.books[i]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.bookIndex(chi.URLParam(r, "id"))
	if i < 0 {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Livre non trouvé")
		return
	}
	s.books = append(s.books[:i], s.books[i+1:]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Livre supprimé"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	for _, u := range s.Users() {
		if strings.EqualFold(u.Email, body.Email) && u.Password == body.Password {
			u.Password = ""
			writeJSON(w, http.StatusOK, library.LoginResult{Success: true, User: &u})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, library.LoginResult{Error: "Email ou mot de passe incorrect"})
}

func (s *Server) findUsers(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	out := []library.User{}
	for _, u := range s.Users() {
		if email == "" || strings.EqualFold(u.Email, email) {
			u.Password = ""
			out = append(out, u)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u library.User
	if !s.decode(w, r, &u) {
		return
	}
	u.ID = ""
	created := s.AddUser(u)
	created.Password = ""
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) userRating(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rating, ok := s.ratings[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		rating = library.UserRating{RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, Ratings: []library.Review{}}
	}
	writeJSON(w, http.StatusOK, rating)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	requester := r.URL.Query().Get("requesterId")
	out := []library.LoanRequest{}
	for _, req := range s.Requests() {
		if requester == "" || req.RequesterID == requester {
			out = append(out, req)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	var req library.LoanRequest
	if !s.decode(w, r, &req) {
		return
	}
	key := r.Header.Get("Idempotency-Key")

	s.mu.Lock()
	if prev, ok := s.idempotent[key]; ok && key != "" {
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, prev)
		return
	}
	req.ID = newID()
	s.requests = append(s.requests, req)
	if key != "" {
		s.idempotent[key] = req
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("reportedByUserId")
	s.mu.Lock()
	out := []library.Report{}
	for _, rep := range s.reports {
		if by == "" || rep.ReportedBy == by {
			out = append(out, rep)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateReportStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status    library.ReportStatus `json:"status"`
		AdminNote string               `json:"adminNote"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if !body.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID != id {
			continue
		}
		s.reports[i].Status = body.Status
		s.reports[i].AdminNote = body.AdminNote
		s.reports[i].UpdatedAt = s.now().UTC()
		writeJSON(w, http.StatusOK, s.reports[i])
		return
	}
	writeError(w, http.StatusNotFound, "Signalement non trouvé")
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipientId")
	s.mu.Lock()
	out := []library.Notification{}
	for _, n := range s.notifications {
		if recipient == "" || n.RecipientID == recipient {
			out = append(out, n)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].ReadAt == nil {
			now := s.now().UTC()
			s.notifications[i].ReadAt = &now
		}
		writeJSON(w, http.StatusOK, s.notifications[i])
		return
	}
	writeError(w, http.StatusNotFound, "Notification non trouvée")
}

package library

import "context"

// The workflows talk to the REST service through these narrow interfaces;
// api.Client implements all of them.

type BookLister interface {
	ListBooks(ctx context.Context) ([]Book, error)
}

type BookService interface {
	BookLister
	GetBook(ctx context.Context, id string) (*Book, error)
	CreateBook(ctx context.Context, book Book) (*Book, error)
	UpdateBook(ctx context.Context, id string, edit BookEdit) (*Book, error)
	DeleteBook(ctx context.Context, id string) error
}

type RequestService interface {
	ListRequests(ctx context.Context, requesterID string) ([]LoanRequest, error)
	CreateRequest(ctx context.Context, req LoanRequest, idempotencyKey string) (*LoanRequest, error)
}

type AccountService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	FindUsersByEmail(ctx context.Context, email string) ([]User, error)
	CreateUser(ctx context.Context, user User) (*User, error)
	UserRating(ctx context.Context, userID string) (*UserRating, error)
}

type ModerationService interface {
	ListReports(ctx context.Context, reportedByUserID string) ([]Report, error)
	UpdateReportStatus(ctx context.Context, id string, status ReportStatus, adminNote string) (*Report, error)
	ListNotifications(ctx context.Context, recipientID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Backend is the whole REST surface.
type Backend interface {
	BookService
	RequestService
	AccountService
	ModerationService
}

// LoginResult is the body returned by POST /auth/login.
type LoginResult struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

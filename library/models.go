package library

import "time"

// Role is the account type chosen at signup.
type Role string

const (
	RoleBorrower Role = "emprunteur"
	RoleLender   Role = "preteur"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBorrower, RoleLender, RoleAdmin:
		return true
	}
	return false
}

// GuestName is the display name of the placeholder identity.
const GuestName = "Invité"

// User is an account as returned by the API. Password is only ever sent on
// signup and is never written to local storage.
type User struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Role     Role   `json:"role"`
}

// Guest returns the placeholder used when nobody is logged in.
func Guest() User {
	return User{Name: GuestName, Role: RoleBorrower}
}

// IsGuest reports whether u carries no stable identifier.
func (u User) IsGuest() bool { return u.ID == "" }

// Category is one of the fixed shelves a book is listed under.
type Category string

const (
	CategoryComputing  Category = "Informatique"
	CategoryLiterature Category = "Littérature"
	CategorySciences   Category = "Sciences"
	CategoryEconomics  Category = "Économie"

	// CategoryAll is the catalog filter sentinel matching every category.
	CategoryAll Category = "Toutes"
)

// Categories lists the shelves in display order.
var Categories = []Category{CategoryComputing, CategoryLiterature, CategorySciences, CategoryEconomics}

// Valid reports whether c is a listable category. CategoryAll is not.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// BookStatus is the availability flag of a listing.
type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookUnavailable BookStatus = "unavailable"
)

func (s BookStatus) Valid() bool { return s == BookAvailable || s == BookUnavailable }

// Label is the French badge shown next to a book.
func (s BookStatus) Label() string {
	if s == BookAvailable {
		return "Disponible"
	}
	return "Emprunté"
}

// DefaultBookRating is the lender reliability shown for a book without ratings.
const DefaultBookRating = 5.0

// Book is a listing offered by a lender.
type Book struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Category  Category   `json:"category"`
	Status    BookStatus `json:"status"`
	Rating    *float64   `json:"rating,omitempty"`
	Image     string     `json:"image"`
	Owner     string     `json:"owner"`
	OwnerName string     `json:"ownerName"`
	OwnerID   string     `json:"ownerId"`
}

// DisplayRating returns the book rating, defaulting to DefaultBookRating.
func (b Book) DisplayRating() float64 {
	if b.Rating == nil {
		return DefaultBookRating
	}
	return *b.Rating
}

// DisplayOwner prefers the owner field the original listing form filled in.
func (b Book) DisplayOwner() string {
	if b.Owner != "" {
		return b.Owner
	}
	return b.OwnerName
}

// BookEdit carries the four fields an owner may change.
type BookEdit struct {
	Title    string     `json:"title"`
	Author   string     `json:"author"`
	Category Category   `json:"category"`
	Status   BookStatus `json:"status"`
}

// RequestStatus is the lifecycle state of a loan request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRefused  RequestStatus = "refused"
)

func (s RequestStatus) Label() string {
	switch s {
	case RequestPending:
		return "En attente"
	case RequestAccepted:
		return "Acceptée"
	default:
		return "Refusée"
	}
}

// MeetingDetails is the meeting proposal nested in a loan request.
type MeetingDetails struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

// LoanRequest is a borrower's proposal to meet and exchange a book. Book and
// owner names are snapshots taken when the request was made.
type LoanRequest struct {
	ID             string         `json:"id,omitempty"`
	BookID         string         `json:"bookId"`
	BookTitle      string         `json:"bookTitle"`
	RequesterID    string         `json:"requesterId"`
	RequesterName  string         `json:"requesterName"`
	OwnerName      string         `json:"ownerName"`
	Status         RequestStatus  `json:"status"`
	RequestDate    string         `json:"requestDate"`
	MeetingDetails MeetingDetails `json:"meetingDetails"`
}

// RatingSubmission is what the rating form hands to its caller.
type RatingSubmission struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Review is one rating received by a user.
type Review struct {
	BookTitle string    `json:"bookTitle"`
	Comment   string    `json:"comment"`
	RatedAt   time.Time `json:"ratedAt"`
	RatedBy   string    `json:"ratedBy"`
	Rating    int       `json:"rating"`
}

// UserRating is the per-user aggregate shown on the profile.
type UserRating struct {
	AverageRating      float64     `json:"averageRating"`
	TotalRatings       int         `json:"totalRatings"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
	Ratings            []Review    `json:"ratings"`
}

// ReportReason is why a report was filed.
type ReportReason string

const (
	ReasonNotReturned ReportReason = "non_rendu"
	ReasonDamaged     ReportReason = "abime"
	ReasonNoShow      ReportReason = "absence"
	ReasonBehaviour   ReportReason = "comportement"
)

// Label returns the human reason, or the raw value for unknown reasons.
func (r ReportReason) Label() string {
	switch r {
	case ReasonNotReturned:
		return "Livre non restitué"
	case ReasonDamaged:
		return "Livre détérioré"
	case ReasonNoShow:
		return "Rendez-vous manqué"
	case ReasonBehaviour:
		return "Comportement inapproprié"
	}
	return string(r)
}

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending    ReportStatus = "en_attente"
	ReportInProgress ReportStatus = "traite"
	ReportResolved   ReportStatus = "resolu"
)

func (s ReportStatus) Valid() bool {
	return s == ReportPending || s == ReportInProgress || s == ReportResolved
}

func (s ReportStatus) Label() string {
	switch s {
	case ReportPending:
		return "En attente"
	case ReportInProgress:
		return "En traitement"
	case ReportResolved:
		return "Résolu"
	}
	return string(s)
}

// Report is a complaint filed against a counterpart of an exchange.
type Report struct {
	ID             string       `json:"id"`
	BookTitle      string       `json:"bookTitle"`
	Reason         ReportReason `json:"reason"`
	Description    string       `json:"description"`
	ReportedBy     string       `json:"reportedBy"`
	ReportedByRole Role         `json:"reportedByRole"`
	TargetUser     string       `json:"targetUser"`
	Status         ReportStatus `json:"status"`
	AdminNote      string       `json:"adminNote"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// NotificationType distinguishes loan reminders from everything else.
type NotificationType string

const (
	NotificationReminder NotificationType = "reminder"
	NotificationOther    NotificationType = "other"
)

// Notification is a message addressed to one user. ReadAt is set once read.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Subject     string           `json:"subject"`
	Message     string           `json:"message"`
	SenderName  string           `json:"senderName"`
	RecipientID string           `json:"recipientId"`
	SentAt      time.Time        `json:"sentAt"`
	ReadAt      *time.Time       `json:"readAt"`
}

func (n Notification) Read() bool { return n.ReadAt != nil }

package library

import "fmt"

// OwnershipRule selects how a listing's owner is recognised.
type OwnershipRule string

const (
	// OwnershipByID matches the stable owner identifier only.
	OwnershipByID OwnershipRule = "id"
	// OwnershipLegacy also accepts a display-name match, for listings
	// created before every record carried ownerId.
	OwnershipLegacy OwnershipRule = "legacy"
)

// ParseOwnershipRule accepts "id" (or empty) and "legacy".
func ParseOwnershipRule(s string) (OwnershipRule, error) {
	switch OwnershipRule(s) {
	case "", OwnershipByID:
		return OwnershipByID, nil
	case OwnershipLegacy:
		return OwnershipLegacy, nil
	}
	return "", fmt.Errorf("unknown ownership rule %q", s)
}

// IsOwner reports whether user may edit or delete book. A guest never owns
// anything.
func (r OwnershipRule) IsOwner(book Book, user User) bool {
	if user.IsGuest() {
		return false
	}
	if book.OwnerID != "" && book.OwnerID == user.ID {
		return true
	}
	if r != OwnershipLegacy || user.Name == "" {
		return false
	}
	return user.Name == book.Owner || user.Name == book.OwnerName
}

// IsOwner applies the identifier rule.
func IsOwner(book Book, user User) bool {
	return OwnershipByID.IsOwner(book, user)
}

// CanPublish reports whether user may list new books.
func CanPublish(user User) bool {
	return !user.IsGuest() && user.Role == RoleLender
}

func IsAdmin(user User) bool {
	return !user.IsGuest() && user.Role == RoleAdmin
}

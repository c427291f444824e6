package library

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageSize is the largest cover accepted before encoding.
const MaxImageSize = 5 * 1024 * 1024

// ImageUpload is a cover picture chosen by the lender.
type ImageUpload struct {
	Name string
	Data []byte
	// ContentType is the declared type; empty means sniff it from Data.
	ContentType string
}

// ReadImageFile loads a cover from disk.
func ReadImageFile(path string) (*ImageUpload, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return &ImageUpload{Name: filepath.Base(path), Data: data}, nil
}

func (img *ImageUpload) contentType() string {
	if img.ContentType != "" {
		return img.ContentType
	}
	return http.DetectContentType(img.Data)
}

// Validate checks the type and size limits.
func (img *ImageUpload) Validate() error {
	if !strings.HasPrefix(img.contentType(), "image/") {
		return invalid("image", "Veuillez sélectionner une image valide")
	}
	if len(img.Data) > MaxImageSize {
		return invalid("image", "L'image ne doit pas dépasser 5MB")
	}
	return nil
}

// DataURL is the inline encoding stored in the book record.
func (img *ImageUpload) DataURL() string {
	return "data:" + img.contentType() + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// BookDraft is the listing form.
type BookDraft struct {
	Title    string
	Author   string
	Category Category
	Image    *ImageUpload
}

// Validate runs every check that happens before the network is involved.
func (d BookDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "required")
	}
	if strings.TrimSpace(d.Author) == "" {
		return invalid("author", "required")
	}
	if !d.Category.Valid() {
		return invalid("category", fmt.Sprintf("unknown category %q", d.Category))
	}
	if d.Image != nil {
		return d.Image.Validate()
	}
	return nil
}

// NewListing builds the record sent for a draft published by owner.
func NewListing(d BookDraft, owner User) Book {
	rating := DefaultBookRating
	book := Book{
		Title:     strings.TrimSpace(d.Title),
		Author:    strings.TrimSpace(d.Author),
		Category:  d.Category,
		Status:    BookAvailable,
		Rating:    &rating,
		Owner:     owner.Name,
		OwnerName: owner.Name,
		OwnerID:   owner.ID,
	}
	if d.Image != nil {
		book.Image = d.Image.DataURL()
	}
	return book
}

// httpStatus extracts the status of a failed API call, 0 when unknown.
func httpStatus(err error) int {
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// Publish lists a new book for the session user, who must be a lender.
func (m *Manager) Publish(ctx context.Context, draft BookDraft) (*Book, error) {
	user := m.CurrentUser(ctx)
	if user.IsGuest() {
		return nil, ErrLoginRequired
	}
	if !CanPublish(user) {
		return nil, fmt.Errorf("publish as %s: %w", user.Role, ErrForbidden)
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	created, err := m.backend.CreateBook(ctx, NewListing(draft, user))
	if err != nil {
		if httpStatus(err) == http.StatusRequestEntityTooLarge {
			return nil, fmt.Errorf("publish %q: %w", draft.Title, ErrImageTooLarge)
		}
		return nil, fmt.Errorf("publish %q: %w", draft.Title, err)
	}
	m.logger.Info().Str("book_id", created.ID).Str("title", created.Title).Msg("book published")
	return created, nil
}

package library

import (
	"context"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// MatchesSearch reports whether book passes the catalog filter: the term is
// a case-insensitive substring of the title or the author, and the category
// is the wanted one or the filter is CategoryAll (or empty).
func MatchesSearch(book Book, term string, category Category) bool {
	if category != "" && category != CategoryAll && book.Category != category {
		return false
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(book.Title), term) ||
		strings.Contains(strings.ToLower(book.Author), term)
}

// FilterBooks returns the books passing MatchesSearch, in their original order.
func FilterBooks(books []Book, term string, category Category) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if MatchesSearch(b, term, category) {
			out = append(out, b)
		}
	}
	return out
}

// OwnerInitial is the avatar letter shown on a catalog card.
func OwnerInitial(book Book) string {
	name := strings.TrimSpace(book.DisplayOwner())
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// CatalogHeading titles the result list for the selected shelf.
func CatalogHeading(category Category) string {
	if category == "" || category == CategoryAll {
		return "Derniers ajouts"
	}
	return "Rayon " + string(category)
}

// Catalog holds the book collection fetched once and filters it locally.
type Catalog struct {
	books BookLister

	mu     sync.RWMutex
	all    []Book
	loaded bool
}

func NewCatalog(books BookLister) *Catalog {
	return &Catalog{books: books}
}

// Load fetches the full collection, replacing any previous copy.
func (c *Catalog) Load(ctx context.Context) error {
	books, err := c.books.ListBooks(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.all = books
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Filter runs the search over the loaded copy without touching the network.
func (c *Catalog) Filter(term string, category Category) []Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FilterBooks(c.all, term, category)
}

// Len is the size of the loaded collection.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.all)
}

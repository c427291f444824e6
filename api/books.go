package api

import (
	"context"
	"net/http"

	"biblioflow/library"
)

func (c *Client) ListBooks(ctx context.Context) ([]library.Book, error) {
	var out []library.Book
	if err := c.doJSON(ctx, http.MethodGet, "/books", nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBook fetches one listing. The service serves it at the root, not under
// /books.
func (c *Client) GetBook(ctx context.Context, id string) (*library.Book, error) {
	path, err := pathID("", id)
	if err != nil {
		return nil, err
	}
	out := &library.Book{}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBook posts a new listing. The image travels inline, so a large
// cover can be refused with 413.
func (c *Client) CreateBook(ctx context.Context, book library.Book) (*library.Book, error) {
	out := &library.Book{}
	if err := c.doJSON(ctx, http.MethodPost, "/books", nil, nil, book, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, edit library.BookEdit) (*library.Book, error) {
	path, err := pathID("/books", id)
	if err != nil {
		return nil, err
	}
	out := &library.Book{}
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, nil, edit, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	path, err := pathID("/books", id)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil, nil)
}

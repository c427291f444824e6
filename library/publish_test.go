package library_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioflow/library"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImageValidation(t *testing.T) {
	img := &library.ImageUpload{Data: pngHeader}
	require.NoError(t, img.Validate())
	assert.True(t, strings.HasPrefix(img.DataURL(), "data:image/png;base64,"))

	text := &library.ImageUpload{Data: []byte("hello")}
	assert.ErrorIs(t, text.Validate(), library.ErrValidation)

	big := &library.ImageUpload{Data: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, library.MaxImageSize)...)}
	assert.ErrorIs(t, big.Validate(), library.ErrValidation)

	declared := &library.ImageUpload{Data: []byte("<svg/>"), ContentType: "image/svg+xml"}
	assert.NoError(t, declared.Validate())
}

func TestReadImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o644))

	img, err := library.ReadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cover.png", img.Name)
	assert.NoError(t, img.Validate())
}

func TestPublishRequiresLender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	draft := library.BookDraft{Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature}

	_, err := f.mgr.Publish(ctx, draft)
	assert.ErrorIs(t, err, library.ErrLoginRequired)

	f.loginAs(t, library.User{Email: "bo@example.com", Name: "Bo", Role: library.RoleBorrower})
	_, err = f.mgr.Publish(ctx, draft)
	assert.ErrorIs(t, err, library.ErrForbidden)
	assert.Zero(t, f.srv.Calls("POST /books"))
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	me := f.loginAs(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})

	_, err := f.mgr.Publish(ctx, library.BookDraft{Title: "Dune", Category: library.CategoryLiterature})
	assert.ErrorIs(t, err, library.ErrValidation)
	_, err = f.mgr.Publish(ctx, library.BookDraft{Title: "Dune", Author: "Herbert", Category: library.CategoryAll})
	assert.ErrorIs(t, err, library.ErrValidation)
	assert.Zero(t, f.srv.Calls("POST /books"))

	created, err := f.mgr.Publish(ctx, library.BookDraft{
		Title:    " Dune ",
		Author:   "Herbert",
		Category: library.CategoryLiterature,
		Image:    &library.ImageUpload{Data: pngHeader},
	})
	require.NoError(t, err)

	stored, ok := f.srv.Book(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Dune", stored.Title)
	assert.Equal(t, me.ID, stored.OwnerID)
	assert.Equal(t, "Ana", stored.Owner)
	assert.Equal(t, "Ana", stored.OwnerName)
	assert.Equal(t, library.BookAvailable, stored.Status)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 5.0, *stored.Rating)
	assert.True(t, strings.HasPrefix(stored.Image, "data:image/png;base64,"))
}

func TestPublishImageTooLargeForServer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "")
	f.loginAs(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})
	f.srv.SetPayloadLimit(256)

	cover := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 1024)...)
	_, err := f.mgr.Publish(ctx, library.BookDraft{
		Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature,
		Image: &library.ImageUpload{Data: cover},
	})
	assert.ErrorIs(t, err, library.ErrImageTooLarge)
	assert.Empty(t, f.srv.Books())
}

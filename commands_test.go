package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioflow/api/apitest"
	"biblioflow/library"
)

type cli struct {
	srv *apitest.Server
	db  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("BIBLIOFLOW_SESSION_SECRET", "")
	t.Setenv("BIBLIOFLOW_HTTP_TIMEOUT", "")
	t.Setenv("BIBLIOFLOW_SESSION_TTL", "")
	return &cli{srv: apitest.New(t), db: filepath.Join(t.TempDir(), "cli.db")}
}

// run executes one command line against the fake service, feeding stdin.
func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(strings.NewReader(stdin), &out, &errOut, false)
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{
		"--api-url", c.srv.URL,
		"--env", "development",
		"--storage", "sqlite",
		"--db", c.db,
		"--ownership", "id",
		"--log-level", "error",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func (c *cli) login(t *testing.T, u library.User) library.User {
	t.Helper()
	u.Password = "pw-" + u.Name
	seeded := c.srv.AddUser(u)
	out, err := c.run(t, u.Password+"\n", "login", "--email", u.Email)
	require.NoError(t, err)
	require.Contains(t, out, "Bienvenue "+u.Name)
	return seeded
}

func TestBooksCommand(t *testing.T) {
	c := newCLI(t)
	c.srv.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", Category: library.CategoryLiterature})
	c.srv.AddBook(library.Book{Title: "Le Go en pratique", Author: "Ana", Category: library.CategoryComputing})

	out, err := c.run(t, "", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Le Go en pratique")

	out, err = c.run(t, "", "books", "--search", "herbert")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, out, "Le Go en pratique")

	out, err = c.run(t, "", "books", "-c", "informatique")
	require.NoError(t, err)
	assert.Contains(t, out, "Le Go en pratique")
	assert.NotContains(t, out, "Dune")

	_, err = c.run(t, "", "books", "-c", "cuisine")
	assert.ErrorIs(t, err, library.ErrValidation)
}

func TestLoginPersistsAcrossRuns(t *testing.T) {
	c := newCLI(t)
	c.login(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})

	out, err := c.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana <ana@example.com>")
	assert.Contains(t, out, "Ajouter un livre")

	_, err = c.run(t, "", "logout")
	require.NoError(t, err)
	out, err = c.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "non connecté")
	assert.Contains(t, out, "Connexion")
}

func TestWrongPassword(t *testing.T) {
	c := newCLI(t)
	c.srv.AddUser(library.User{Email: "ana@example.com", Name: "Ana", Password: "right", Role: library.RoleLender})

	_, err := c.run(t, "wrong\n", "login", "--email", "ana@example.com")
	require.Error(t, err)
	assert.Equal(t, "Email ou mot de passe incorrect", UserMessage(err))
}

func TestPublishNeedsLender(t *testing.T) {
	c := newCLI(t)
	args := []string{"publish", "--title", "Dune", "--author", "Herbert", "--category", "Littérature"}

	_, err := c.run(t, "", args...)
	assert.ErrorIs(t, err, library.ErrLoginRequired)

	c.login(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})
	out, err := c.run(t, "", args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Livre « Dune » publié")
	require.Len(t, c.srv.Books(), 1)
	assert.Equal(t, "Ana", c.srv.Books()[0].Owner)
}

func TestPublishDefaultsToComputing(t *testing.T) {
	c := newCLI(t)
	c.login(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})

	_, err := c.run(t, "", "publish", "--title", "SICP", "--author", "Abelson")
	require.NoError(t, err)
	require.Len(t, c.srv.Books(), 1)
	assert.Equal(t, library.CategoryComputing, c.srv.Books()[0].Category)
}

func TestShowListsOnlyRequestsForThatBook(t *testing.T) {
	c := newCLI(t)
	me := c.login(t, library.User{Email: "bo@example.com", Name: "Bo", Role: library.RoleBorrower})
	dune := c.srv.AddBook(library.Book{Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature})
	emma := c.srv.AddBook(library.Book{Title: "Emma", Author: "Austen", Category: library.CategoryLiterature})
	forDune := c.srv.AddRequest(library.LoanRequest{BookID: dune.ID, BookTitle: "Dune", RequesterID: me.ID, Status: library.RequestPending})
	forEmma := c.srv.AddRequest(library.LoanRequest{BookID: emma.ID, BookTitle: "Emma", RequesterID: me.ID, Status: library.RequestPending})

	out, err := c.run(t, "", "show", dune.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Vos demandes pour ce livre")
	assert.Contains(t, out, forDune.ID)
	assert.NotContains(t, out, forEmma.ID)

	out, err = c.run(t, "", "show", emma.ID)
	require.NoError(t, err)
	assert.Contains(t, out, forEmma.ID)
	assert.NotContains(t, out, forDune.ID)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	c := newCLI(t)
	me := c.login(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})
	book := c.srv.AddBook(library.Book{Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature, OwnerID: me.ID})

	_, err := c.run(t, "n\n", "delete", book.ID)
	assert.ErrorIs(t, err, errCancelled)
	_, ok := c.srv.Book(book.ID)
	assert.True(t, ok)

	out, err := c.run(t, "", "delete", book.ID, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "supprimé")
	_, ok = c.srv.Book(book.ID)
	assert.False(t, ok)
}

func TestEditKeepsUnchangedFields(t *testing.T) {
	c := newCLI(t)
	me := c.login(t, library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})
	book := c.srv.AddBook(library.Book{Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature, OwnerID: me.ID})

	_, err := c.run(t, "", "edit", book.ID, "--status", "unavailable")
	require.NoError(t, err)

	got, ok := c.srv.Book(book.ID)
	require.True(t, ok)
	assert.Equal(t, library.BookUnavailable, got.Status)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, library.CategoryLiterature, got.Category)
}

func TestRequestAndRate(t *testing.T) {
	c := newCLI(t)
	owner := c.srv.AddUser(library.User{Email: "ana@example.com", Name: "Ana", Role: library.RoleLender})
	book := c.srv.AddBook(library.Book{Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature, OwnerID: owner.ID, Owner: "Ana"})
	me := c.login(t, library.User{Email: "bo@example.com", Name: "Bo", Role: library.RoleBorrower})

	_, err := c.run(t, "", "request", book.ID, "--date", "2026-11-02")
	assert.ErrorIs(t, err, library.ErrValidation)

	out, err := c.run(t, "", "request", book.ID, "--date", "2026-11-02", "--location", "Gare")
	require.NoError(t, err)
	assert.Contains(t, out, "Demande envoyée à Ana")
	require.Len(t, c.srv.Requests(), 1)

	accepted := c.srv.AddRequest(library.LoanRequest{BookTitle: "Emma", RequesterID: me.ID, Status: library.RequestAccepted})

	_, err = c.run(t, "", "rate", accepted.ID)
	assert.ErrorIs(t, err, library.ErrRatingUnset)

	out, err = c.run(t, "", "rate", accepted.ID, "--stars", "4", "--comment", "parfait")
	require.NoError(t, err)
	assert.Contains(t, out, "★★★★☆")

	out, err = c.run(t, "", "rate")
	require.NoError(t, err)
	assert.Contains(t, out, "en attente d'envoi (1)")

	_, err = c.run(t, "", "rate", "nope", "--stars", "4")
	assert.ErrorIs(t, err, errNotMine)
}

func TestReportStatusIsAdminOnly(t *testing.T) {
	c := newCLI(t)
	rep := c.srv.AddReport(library.Report{BookTitle: "Dune", ReportedBy: "someone", Status: library.ReportPending})

	c.login(t, library.User{Email: "bo@example.com", Name: "Bo", Role: library.RoleBorrower})
	_, err := c.run(t, "", "report-status", rep.ID, "resolu")
	assert.ErrorIs(t, err, library.ErrForbidden)

	c.login(t, library.User{Email: "root@example.com", Name: "Root", Role: library.RoleAdmin})
	out, err := c.run(t, "", "reports")
	require.NoError(t, err)
	assert.Contains(t, out, "Tous les signalements")
	assert.Contains(t, out, "traite, resolu")

	out, err = c.run(t, "", "report-status", rep.ID, "resolu", "--note", "ok")
	require.NoError(t, err)
	assert.Contains(t, out, "Résolu")

	_, err = c.run(t, "", "report-status", rep.ID, "traite")
	assert.ErrorIs(t, err, library.ErrInvalidTransition)
}

func TestTheme(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "", "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "Thème : light")

	out, err = c.run(t, "", "theme", "toggle")
	require.NoError(t, err)
	assert.Contains(t, out, "Thème : dark")

	out, err = c.run(t, "", "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "Thème : dark")
}

func TestInvalidConfiguration(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "", "books", "--ownership", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ownership")
}

func TestInteractiveShell(t *testing.T) {
	c := newCLI(t)
	c.srv.AddBook(library.Book{Title: "Dune", Author: "Herbert", Category: library.CategoryLiterature})
	c.srv.AddUser(library.User{Email: "ana@example.com", Name: "Ana", Password: "pw", Role: library.RoleLender})

	out, err := c.run(t, strings.Join([]string{
		"books",
		"frobnicate",
		"login",
		"ana@example.com",
		"pw",
		"whoami",
		"exit",
	}, "\n")+"\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Bienvenue sur BiblioFlow")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Commande inconnue")
	assert.Contains(t, out, "Ana <ana@example.com>")
	assert.Contains(t, out, "[Ana] > ")
	assert.Contains(t, out, "Au revoir")
}

func TestShellReportsErrorsAndContinues(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "requests\npublish\nexit\n")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Vous devez être connecté"))
	assert.Contains(t, out, "Au revoir")
}

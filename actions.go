package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biblioflow/library"
)

// errCancelled is returned when the user backs out of a confirmation.
var errCancelled = errors.New("cancelled by user")

// ------------------ Account ------------------

func (a *app) login(ctx context.Context, email, password string) error {
	u, err := a.mgr.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if a.shell != nil {
		a.shell.Refresh(ctx)
	}
	fmt.Fprintf(a.out, "Bienvenue %s ! Vous êtes connecté en tant que %s.\n", u.Name, u.Role)
	return nil
}

func (a *app) signup(ctx context.Context, email, password string, role library.Role) error {
	u, err := a.mgr.Signup(ctx, email, password, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Compte créé pour %s (%s). Vous pouvez maintenant vous connecter.\n", u.Email, u.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.mgr.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Vous êtes déconnecté.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	u := a.mgr.CurrentUser(ctx)
	if u.IsGuest() {
		fmt.Fprintf(a.out, "%s (non connecté)\n", u.Name)
	} else {
		fmt.Fprintf(a.out, "%s <%s> - %s\n", u.Name, u.Email, u.Role)
	}
	printLinks(a.out, u)
	fmt.Fprintf(a.out, "Serveur : %s\n", a.client.BaseURL())
	return nil
}

// ------------------ Books ------------------

func (a *app) listBooks(ctx context.Context, term string, category library.Category) error {
	if category == "" {
		category = library.CategoryAll
	}
	catalog := a.mgr.Catalog()
	if err := catalog.Load(ctx); err != nil {
		return err
	}
	printBooks(a.out, library.CatalogHeading(category), catalog.Filter(term, category))
	return nil
}

// openBook loads the detail page for id. The caller closes it.
func (a *app) openBook(ctx context.Context, id string) (*library.BookDetail, library.Book, error) {
	d := a.mgr.OpenBook(ctx, id)
	if err := d.Load(ctx); err != nil {
		d.Close()
		return nil, library.Book{}, err
	}
	b, _ := d.Book()
	return d, b, nil
}

func (a *app) showBook(ctx context.Context, id string) error {
	d, b, err := a.openBook(ctx, id)
	if err != nil {
		return err
	}
	defer d.Close()

	printBook(a.out, b, d.IsOwner())
	var mine []library.LoanRequest
	for _, r := range d.MyRequests() {
		if r.BookID == b.ID {
			mine = append(mine, r)
		}
	}
	if len(mine) > 0 {
		fmt.Fprintln(a.out, "\nVos demandes pour ce livre :")
		printRequests(a.out, mine)
	}
	return nil
}

func (a *app) publish(ctx context.Context, draft library.BookDraft) error {
	b, err := a.mgr.Publish(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Livre « %s » publié (ID %s).\n", b.Title, b.ID)
	return nil
}

// editBook opens the edit dialog, lets change adjust the pre-filled form,
// then saves.
func (a *app) editBook(ctx context.Context, id string, change func(*library.BookEdit) bool) error {
	d, _, err := a.openBook(ctx, id)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.OpenEdit(); err != nil {
		return err
	}
	edit := d.EditDefaults()
	if !change(&edit) {
		d.Cancel()
		return errCancelled
	}
	updated, err := d.Edit(ctx, edit)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Livre mis à jour : %s\n", library.PrettyBook(*updated))
	return nil
}

// deleteBook returns the redirect to follow once the listing is gone.
func (a *app) deleteBook(ctx context.Context, id string, confirmed bool) (library.Redirect, error) {
	d, b, err := a.openBook(ctx, id)
	if err != nil {
		return library.Redirect{}, err
	}
	defer d.Close()

	if err := d.OpenDelete(); err != nil {
		return library.Redirect{}, err
	}
	if !confirmed && !a.confirm(fmt.Sprintf("Supprimer définitivement « %s » ?", b.Title)) {
		d.Cancel()
		return library.Redirect{}, errCancelled
	}
	r, err := d.Delete(ctx)
	if err != nil {
		return library.Redirect{}, err
	}
	fmt.Fprintf(a.out, "Livre « %s » supprimé. Retour à l'accueil.\n", b.Title)
	return r, nil
}

func (a *app) requestBook(ctx context.Context, id string, meeting library.MeetingDetails) error {
	d, b, err := a.openBook(ctx, id)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.OpenRequest(); err != nil {
		return err
	}
	req, err := d.SubmitLoanRequest(ctx, meeting)
	if err != nil {
		d.Cancel()
		return err
	}
	fmt.Fprintf(a.out, "Demande envoyée à %s pour « %s » (ID %s).\n", req.OwnerName, b.Title, req.ID)
	return nil
}

func (a *app) reportProblem(ctx context.Context, id string) error {
	d, _, err := a.openBook(ctx, id)
	if err != nil {
		return err
	}
	defer d.Close()
	fmt.Fprintln(a.out, d.ReportProblem())
	return nil
}

// ------------------ Requests and ratings ------------------

func (a *app) listRequests(ctx context.Context) error {
	reqs, err := a.mgr.MyRequests(ctx)
	if err != nil {
		return err
	}
	printRequests(a.out, reqs)
	return nil
}

func (a *app) findRequest(ctx context.Context, id string) (library.LoanRequest, error) {
	reqs, err := a.mgr.MyRequests(ctx)
	if err != nil {
		return library.LoanRequest{}, err
	}
	for _, r := range reqs {
		if r.ID == id {
			return r, nil
		}
	}
	return library.LoanRequest{}, fmt.Errorf("request %s: %w", id, errNotMine)
}

var errNotMine = errors.New("not one of your requests")

// rate submits stars for an accepted loan. Zero stars leaves the form unset.
func (a *app) rate(ctx context.Context, requestID string, stars int, comment string) error {
	req, err := a.findRequest(ctx, requestID)
	if err != nil {
		return err
	}
	form := library.NewRatingForm(req.BookTitle)
	if stars != 0 {
		if err := form.Select(stars); err != nil {
			return err
		}
	}
	form.SetComment(comment)
	if err := a.mgr.RateRequest(ctx, req, form); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Merci ! Votre note %s pour « %s » a été enregistrée.\n", library.Stars(float64(form.Stars())), req.BookTitle)
	return nil
}

// listRateable shows accepted loans and the local queue of ratings.
func (a *app) listRateable(ctx context.Context) error {
	reqs, err := a.mgr.MyRequests(ctx)
	if err != nil {
		return err
	}
	var accepted []library.LoanRequest
	for _, r := range reqs {
		if r.Status == library.RequestAccepted {
			accepted = append(accepted, r)
		}
	}
	fmt.Fprintln(a.out, "Emprunts pouvant être notés :")
	printRequests(a.out, accepted)

	pending, err := a.mgr.PendingRatings().List(ctx)
	if err != nil {
		return err
	}
	printPending(a.out, pending)
	return nil
}

func (a *app) profile(ctx context.Context, userID string) error {
	if userID == "" {
		u := a.mgr.CurrentUser(ctx)
		if !u.IsGuest() {
			fmt.Fprintf(a.out, "%s <%s> - %s\n\n", u.Name, u.Email, u.Role)
		}
	}
	r, err := a.mgr.UserRating(ctx, userID)
	if err != nil {
		return err
	}
	printRating(a.out, r)
	return nil
}

// ------------------ Moderation ------------------

func (a *app) dashboard(ctx context.Context) (*library.Dashboard, error) {
	d := a.mgr.Dashboard(ctx)
	if err := d.Load(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *app) listReports(ctx context.Context) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	printReports(a.out, d)
	if n := d.UnreadCount(); n > 0 {
		fmt.Fprintf(a.out, "\n%d notification(s) non lue(s).\n", n)
	}
	return nil
}

func (a *app) setReportStatus(ctx context.Context, id string, status library.ReportStatus, note string) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	if err := d.UpdateStatus(ctx, id, status, note); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signalement %s : %s.\n", id, status.Label())
	return nil
}

func (a *app) listNotifications(ctx context.Context) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	printNotifications(a.out, d)
	return nil
}

func (a *app) markRead(ctx context.Context, id string) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	if err := d.MarkRead(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Notification %s marquée comme lue (%d non lues).\n", id, d.UnreadCount())
	return nil
}

// ------------------ Shell ------------------

func (a *app) theme(ctx context.Context, toggle bool) error {
	shell := a.mgr.Shell()
	var (
		t   library.Theme
		err error
	)
	if toggle {
		t, err = shell.ToggleTheme(ctx)
	} else {
		t, err = shell.Theme(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Thème : %s\n", t)
	return nil
}

// watch prints every session change until ctx is done.
func (a *app) watch(ctx context.Context) error {
	shell := a.mgr.Shell()
	shell.OnChange(func(u library.User) {
		fmt.Fprintf(a.out, "[%s] session : %s (%s)\n", time.Now().Format(time.TimeOnly), u.Name, u.Role)
		printLinks(a.out, u)
	})
	if err := shell.Start(ctx); err != nil {
		return err
	}
	if u := shell.User(); u.IsGuest() {
		fmt.Fprintf(a.out, "session : %s\n", u.Name)
		printLinks(a.out, u)
	}
	<-ctx.Done()
	return nil
}

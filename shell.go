package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"biblioflow/library"
)

func (a *app) printHelp() {
	fmt.Fprintln(a.out, "Commandes disponibles :")
	fmt.Fprintln(a.out, "  Catalogue : books, search, show, report problem")
	fmt.Fprintln(a.out, "  Prêteur : publish, edit, delete")
	fmt.Fprintln(a.out, "  Emprunts : request, requests, rate, profile")
	fmt.Fprintln(a.out, "  Signalements : reports, report status, notifications, read")
	fmt.Fprintln(a.out, "  Compte : login, signup, logout, whoami, theme")
	fmt.Fprintln(a.out, "  Système : help, exit")
}

// runShell is the interactive loop used when no subcommand is given. The
// prompt follows the session, including logins from another terminal.
func (a *app) runShell(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shell := a.mgr.Shell()
	if err := shell.Start(ctx); err != nil {
		return err
	}
	a.shell = shell
	defer func() { a.shell = nil }()

	fmt.Fprintln(a.out, "Bienvenue sur BiblioFlow !")
	fmt.Fprintf(a.out, "Serveur : %s\n", a.client.BaseURL())
	printLinks(a.out, shell.User())
	a.printHelp()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(a.out, "\n[%s] > ", shell.User().Name)
		if !a.sc.Scan() {
			break
		}
		cmd := strings.ToLower(strings.TrimSpace(a.sc.Text()))

		var err error
		switch cmd {
		case "":
			continue
		case "books", "list books":
			err = a.listBooks(ctx, "", library.CategoryAll)
		case "search", "search book":
			err = handleSearchBooks(ctx, a)
		case "show", "show book":
			err = handleShowBook(ctx, a)
		case "report problem":
			err = withBookID(a, func(id string) error { return a.reportProblem(ctx, id) })
		case "publish", "add book":
			err = handlePublish(ctx, a)
		case "edit", "edit book":
			err = handleEditBook(ctx, a)
		case "delete", "delete book":
			err = handleDeleteBook(ctx, a)
		case "request", "borrow":
			err = handleRequestBook(ctx, a)
		case "requests", "my requests":
			err = a.listRequests(ctx)
		case "rate":
			err = handleRate(ctx, a)
		case "profile":
			err = a.profile(ctx, "")
		case "reports":
			err = a.listReports(ctx)
		case "report status":
			err = handleReportStatus(ctx, a)
		case "notifications":
			err = a.listNotifications(ctx)
		case "read":
			err = handleMarkRead(ctx, a)
		case "login":
			err = handleLogin(ctx, a)
		case "signup":
			err = handleSignup(ctx, a)
		case "logout":
			err = shell.Logout(ctx)
			if err == nil {
				fmt.Fprintln(a.out, "Vous êtes déconnecté.")
			}
		case "whoami":
			err = a.whoami(ctx)
		case "theme":
			err = a.theme(ctx, true)
		case "help":
			a.printHelp()
		case "exit", "quit":
			fmt.Fprintln(a.out, "Au revoir !")
			return nil
		default:
			fmt.Fprintln(a.out, "Commande inconnue. Tapez 'help' pour la liste des commandes.")
		}

		if err != nil {
			a.logger.Debug().Err(err).Str("command", cmd).Msg("shell command failed")
			fmt.Fprintf(a.out, "Erreur : %s\n", UserMessage(err))
		}
	}
	return nil
}

func withBookID(a *app, fn func(id string) error) error {
	id, ok := a.prompt("ID du livre : ")
	if !ok {
		return nil
	}
	return fn(id)
}

func handleSearchBooks(ctx context.Context, a *app) error {
	term, ok := a.prompt("Rechercher (titre ou auteur) : ")
	if !ok {
		return nil
	}
	raw, ok := a.prompt(fmt.Sprintf("Catégorie [%s] (défaut %s) : ", categoryNames(), library.CategoryComputing))
	if !ok {
		return nil
	}
	category, err := publishCategory(raw)
	if err != nil {
		return err
	}
	return a.listBooks(ctx, term, category)
}

func handleShowBook(ctx context.Context, a *app) error {
	return withBookID(a, func(id string) error { return a.showBook(ctx, id) })
}

func handlePublish(ctx context.Context, a *app) error {
	if u := a.mgr.CurrentUser(ctx); !library.CanPublish(u) {
		if u.IsGuest() {
			return library.ErrLoginRequired
		}
		return library.ErrForbidden
	}

	var draft library.BookDraft
	var ok bool
	if draft.Title, ok = a.prompt("Titre : "); !ok {
		return nil
	}
	if draft.Author, ok = a.prompt("Auteur : "); !ok {
		return nil
	}
	raw, ok := a.prompt(fmt.Sprintf("Catégorie [%s] : ", categoryNames()))
	if !ok {
		return nil
	}
	category, err := parseCategory(raw)
	if err != nil {
		return err
	}
	draft.Category = category

	path, ok := a.prompt("Image de couverture (chemin, optionnel) : ")
	if !ok {
		return nil
	}
	if path != "" {
		img, err := library.ReadImageFile(path)
		if err != nil {
			fmt.Fprintf(a.out, "Image ignorée : %v\n", err)
		} else {
			draft.Image = img
		}
	}
	return a.publish(ctx, draft)
}

// handleEditBook pre-fills every field; an empty answer keeps the current
// value.
func handleEditBook(ctx context.Context, a *app) error {
	return withBookID(a, func(id string) error {
		return a.editBook(ctx, id, func(e *library.BookEdit) bool {
			ask := func(label, current string) (string, bool) {
				v, ok := a.prompt(fmt.Sprintf("%s [%s] : ", label, current))
				if v == "" {
					v = current
				}
				return v, ok
			}
			var ok bool
			if e.Title, ok = ask("Titre", e.Title); !ok {
				return false
			}
			if e.Author, ok = ask("Auteur", e.Author); !ok {
				return false
			}
			raw, ok := ask("Catégorie", string(e.Category))
			if !ok {
				return false
			}
			if c, err := parseCategory(raw); err == nil {
				e.Category = c
			} else {
				e.Category = library.Category(raw)
			}
			status, ok := ask("Statut (available/unavailable)", string(e.Status))
			if !ok {
				return false
			}
			e.Status = library.BookStatus(status)
			return true
		})
	})
}

func handleDeleteBook(ctx context.Context, a *app) error {
	return withBookID(a, func(id string) error {
		r, err := a.deleteBook(ctx, id, false)
		if err != nil {
			return err
		}
		select {
		case <-time.After(r.After):
		case <-ctx.Done():
			return nil
		}
		return a.listBooks(ctx, "", library.CategoryAll)
	})
}

func handleRequestBook(ctx context.Context, a *app) error {
	if a.mgr.CurrentUser(ctx).IsGuest() {
		return library.ErrLoginRequired
	}
	return withBookID(a, func(id string) error {
		var m library.MeetingDetails
		var ok bool
		if m.Date, ok = a.prompt("Date du rendez-vous : "); !ok {
			return nil
		}
		if m.Location, ok = a.prompt("Lieu du rendez-vous : "); !ok {
			return nil
		}
		if m.Message, ok = a.prompt("Message au prêteur (optionnel) : "); !ok {
			return nil
		}
		return a.requestBook(ctx, id, m)
	})
}

func handleRate(ctx context.Context, a *app) error {
	if err := a.listRateable(ctx); err != nil {
		return err
	}
	id, ok := a.prompt("\nID de la demande à noter : ")
	if !ok || id == "" {
		return nil
	}
	raw, ok := a.prompt("Note (1-5) : ")
	if !ok {
		return nil
	}
	var stars int
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return &library.ValidationError{Field: "rating", Reason: "not a number"}
		}
		stars = n
	}
	comment, ok := a.prompt("Commentaire (optionnel) : ")
	if !ok {
		return nil
	}
	return a.rate(ctx, id, stars, comment)
}

func handleReportStatus(ctx context.Context, a *app) error {
	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}
	if !d.IsAdmin() {
		return library.ErrForbidden
	}
	id, ok := a.prompt("ID du signalement : ")
	if !ok {
		return nil
	}
	report, found := d.Report(id)
	if !found {
		return fmt.Errorf("report %s: %w", id, library.ErrUnknownItem)
	}
	next := library.NextStatuses(report.Status)
	if len(next) == 0 {
		return library.ErrInvalidTransition
	}
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	status, ok := a.prompt(fmt.Sprintf("Nouveau statut [%s] : ", strings.Join(names, ", ")))
	if !ok {
		return nil
	}
	note, ok := a.prompt("Note (optionnelle) : ")
	if !ok {
		return nil
	}
	if err := d.UpdateStatus(ctx, id, library.ReportStatus(status), note); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signalement %s : %s.\n", id, library.ReportStatus(status).Label())
	return nil
}

func handleMarkRead(ctx context.Context, a *app) error {
	id, ok := a.prompt("ID de la notification : ")
	if !ok {
		return nil
	}
	return a.markRead(ctx, id)
}

func handleLogin(ctx context.Context, a *app) error {
	email, ok := a.prompt("Email : ")
	if !ok {
		return nil
	}
	password, err := a.readPassword("Mot de passe : ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return a.login(ctx, email, password)
}

func handleSignup(ctx context.Context, a *app) error {
	email, ok := a.prompt("Email : ")
	if !ok {
		return nil
	}
	password, err := a.readPassword("Mot de passe : ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	role, ok := a.prompt("Rôle (emprunteur/preteur) [emprunteur] : ")
	if !ok {
		return nil
	}
	return a.signup(ctx, email, password, library.Role(role))
}

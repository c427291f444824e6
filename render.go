package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"biblioflow/library"
)

const dateLayout = "02/01/2006"

func printBooks(w io.Writer, heading string, books []library.Book) {
	fmt.Fprintf(w, "%s (%d)\n", heading, len(books))
	if len(books) == 0 {
		fmt.Fprintln(w, "Aucun livre trouvé.")
		return
	}
	fmt.Fprintf(w, "%-26s %-30s %-25s %-14s %-12s %s\n", "ID", "Titre", "Auteur", "Catégorie", "Statut", "Note")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, b := range books {
		fmt.Fprintln(w, library.PrettyBook(b))
	}
}

func printBook(w io.Writer, b library.Book, owner bool) {
	fmt.Fprintf(w, "%s\n", b.Title)
	fmt.Fprintln(w, strings.Repeat("=", len([]rune(b.Title))))
	fmt.Fprintf(w, "%-11s: %s\n", "Auteur", b.Author)
	fmt.Fprintf(w, "%-11s: %s\n", "Catégorie", b.Category)
	fmt.Fprintf(w, "%-11s: %s\n", "Statut", b.Status.Label())
	fmt.Fprintf(w, "%-11s: %s (%.1f)\n", "Note", library.Stars(b.DisplayRating()), b.DisplayRating())
	fmt.Fprintf(w, "%-11s: [%s] %s\n", "Prêteur", library.OwnerInitial(b), b.DisplayOwner())
	if b.Image != "" {
		fmt.Fprintf(w, "%-11s: %s\n", "Image", describeImage(b.Image))
	}
	if owner {
		fmt.Fprintln(w, "\nVous êtes le propriétaire de ce livre (edit / delete).")
	}
}

// describeImage avoids dumping a whole data URL to the terminal.
func describeImage(image string) string {
	if strings.HasPrefix(image, "data:") {
		mime, _, _ := strings.Cut(strings.TrimPrefix(image, "data:"), ";")
		return fmt.Sprintf("image intégrée (%s, %d Ko)", mime, len(image)*3/4/1024)
	}
	return truncateString(image, 80)
}

func printRequests(w io.Writer, reqs []library.LoanRequest) {
	if len(reqs) == 0 {
		fmt.Fprintln(w, "Aucune demande d'emprunt.")
		return
	}
	fmt.Fprintf(w, "%-26s %-30s %-20s %-12s %-12s %s\n", "ID", "Livre", "Prêteur", "Statut", "Date", "Lieu")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range reqs {
		fmt.Fprintf(w, "%-26s %-30s %-20s %-12s %-12s %s\n",
			r.ID,
			truncateString(r.BookTitle, 30),
			truncateString(r.OwnerName, 20),
			r.Status.Label(),
			truncateString(r.MeetingDetails.Date, 12),
			truncateString(r.MeetingDetails.Location, 30))
	}
}

func printRating(w io.Writer, r *library.UserRating) {
	if r.TotalRatings == 0 {
		fmt.Fprintln(w, "Aucune évaluation pour le moment.")
		return
	}
	fmt.Fprintf(w, "Note moyenne : %.1f/5 %s (%d avis)\n\n", r.AverageRating, library.Stars(r.AverageRating), r.TotalRatings)
	for star := library.MaxStars; star >= library.MinStars; star-- {
		pct := r.DistributionPercent(star)
		fmt.Fprintf(w, "%d ★ %-20s %5.1f%% (%d)\n", star, strings.Repeat("█", int(pct/5)), pct, r.RatingDistribution[star])
	}
	if len(r.Ratings) == 0 {
		return
	}
	fmt.Fprintln(w, "\nDerniers avis :")
	for _, rv := range r.Ratings {
		fmt.Fprintf(w, "  %s  %-30s %s\n", library.Stars(float64(rv.Rating)), truncateString(rv.BookTitle, 30), formatDate(rv.RatedAt))
		if rv.Comment != "" {
			fmt.Fprintf(w, "      « %s »\n", rv.Comment)
		}
	}
}

func printPending(w io.Writer, pending []library.PendingRating) {
	if len(pending) == 0 {
		return
	}
	fmt.Fprintf(w, "\nÉvaluations en attente d'envoi (%d) :\n", len(pending))
	for _, p := range pending {
		fmt.Fprintf(w, "  %-26s %-30s %s\n", p.RequestID, truncateString(p.BookTitle, 30), library.Stars(float64(p.Rating.Rating)))
	}
}

func printReports(w io.Writer, d *library.Dashboard) {
	if d.IsAdmin() {
		fmt.Fprintln(w, "Tous les signalements")
	} else {
		fmt.Fprintln(w, "Mes signalements")
	}
	reports := d.Reports()
	if len(reports) == 0 {
		fmt.Fprintln(w, "Aucun signalement.")
		return
	}
	fmt.Fprintf(w, "%-26s %-25s %-25s %-14s %-11s %s\n", "ID", "Livre", "Motif", "Statut", "Créé le", "Suite possible")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range reports {
		next := "-"
		if d.IsAdmin() {
			var names []string
			for _, s := range library.NextStatuses(r.Status) {
				names = append(names, string(s))
			}
			if len(names) > 0 {
				next = strings.Join(names, ", ")
			}
		}
		fmt.Fprintf(w, "%-26s %-25s %-25s %-14s %-11s %s\n",
			r.ID,
			truncateString(r.BookTitle, 25),
			truncateString(r.Reason.Label(), 25),
			r.Status.Label(),
			formatDate(r.CreatedAt),
			next)
		if r.AdminNote != "" {
			fmt.Fprintf(w, "%26s Note : %s\n", "", r.AdminNote)
		}
	}
}

func printNotifications(w io.Writer, d *library.Dashboard) {
	notifs := d.Notifications()
	fmt.Fprintf(w, "Notifications (%d non lues)\n", d.UnreadCount())
	if len(notifs) == 0 {
		fmt.Fprintln(w, "Aucune notification.")
		return
	}
	fmt.Fprintf(w, "%-26s %-2s %-30s %-20s %s\n", "ID", "", "Objet", "De", "Envoyée le")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, n := range notifs {
		mark := "●"
		if n.Read() {
			mark = " "
		}
		fmt.Fprintf(w, "%-26s %-2s %-30s %-20s %s\n",
			n.ID, mark, truncateString(n.Subject, 30), truncateString(n.SenderName, 20), formatDate(n.SentAt))
	}
}

func printLinks(w io.Writer, user library.User) {
	labels := make([]string, 0, 6)
	for _, l := range library.Links(user) {
		labels = append(labels, l.Label)
	}
	fmt.Fprintf(w, "Menu : %s\n", strings.Join(labels, " | "))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}

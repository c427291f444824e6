package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"biblioflow/library"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "biblioflow",
		Short:         "Client BiblioFlow : prêt de livres entre particuliers",
		Long:          "biblioflow parle au service BiblioFlow. Sans sous-commande, il ouvre le shell interactif.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	a.flags.register(root.PersistentFlags())

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newSignupCmd(a),
		newWhoamiCmd(a),
		newBooksCmd(a),
		newShowCmd(a),
		newPublishCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newRequestCmd(a),
		newRequestsCmd(a),
		newRateCmd(a),
		newProfileCmd(a),
		newReportProblemCmd(a),
		newReportsCmd(a),
		newReportStatusCmd(a),
		newNotificationsCmd(a),
		newReadCmd(a),
		newThemeCmd(a),
		newWatchCmd(a),
	)
	return root
}

// ------------------ Account ------------------

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Se connecter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				var ok bool
				if email, ok = a.prompt("Email : "); !ok {
					return errCancelled
				}
			}
			password, err := a.readPassword("Mot de passe : ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			return a.login(cmd.Context(), email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "adresse email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Se déconnecter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.logout(cmd.Context())
		},
	}
}

func newSignupCmd(a *app) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Créer un compte",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				var ok bool
				if email, ok = a.prompt("Email : "); !ok {
					return errCancelled
				}
			}
			password, err := a.readPassword("Mot de passe : ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			return a.signup(cmd.Context(), email, password, library.Role(role))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "adresse email")
	cmd.Flags().StringVar(&role, "role", string(library.RoleBorrower), "emprunteur ou preteur")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Afficher la session en cours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.whoami(cmd.Context())
		},
	}
}

// ------------------ Books ------------------

func newBooksCmd(a *app) *cobra.Command {
	var search, category string
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Lister le catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := publishCategory(category)
			if err != nil {
				return err
			}
			return a.listBooks(cmd.Context(), search, c)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "rechercher dans le titre ou l'auteur")
	cmd.Flags().StringVarP(&category, "category", "c", string(library.CategoryAll), "catégorie ("+categoryNames()+")")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Afficher un livre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showBook(cmd.Context(), args[0])
		},
	}
}

func newPublishCmd(a *app) *cobra.Command {
	var draft library.BookDraft
	var category, image string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Proposer un livre au prêt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategory(category)
			if err != nil {
				return err
			}
			draft.Category = c
			if image != "" {
				img, err := library.ReadImageFile(image)
				if err != nil {
					return err
				}
				draft.Image = img
			}
			return a.publish(cmd.Context(), draft)
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "titre")
	cmd.Flags().StringVar(&draft.Author, "author", "", "auteur")
	cmd.Flags().StringVar(&category, "category", string(library.CategoryComputing), "catégorie ("+categoryNames()+")")
	cmd.Flags().StringVar(&image, "image", "", "image de couverture (5 Mo max)")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var title, author, category, status string
	cmd := &cobra.Command{
		Use:   "edit <book-id>",
		Short: "Modifier un de vos livres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return a.editBook(cmd.Context(), args[0], func(e *library.BookEdit) bool {
				if flags.Changed("title") {
					e.Title = title
				}
				if flags.Changed("author") {
					e.Author = author
				}
				if flags.Changed("category") {
					if c, err := parseCategory(category); err == nil {
						e.Category = c
					} else {
						e.Category = library.Category(category)
					}
				}
				if flags.Changed("status") {
					e.Status = library.BookStatus(status)
				}
				return true
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "nouveau titre")
	cmd.Flags().StringVar(&author, "author", "", "nouvel auteur")
	cmd.Flags().StringVar(&category, "category", "", "nouvelle catégorie")
	cmd.Flags().StringVar(&status, "status", "", "available ou unavailable")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Supprimer un de vos livres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.deleteBook(cmd.Context(), args[0], yes)
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "ne pas demander de confirmation")
	return cmd
}

func newRequestCmd(a *app) *cobra.Command {
	var meeting library.MeetingDetails
	cmd := &cobra.Command{
		Use:   "request <book-id>",
		Short: "Demander à emprunter un livre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.requestBook(cmd.Context(), args[0], meeting)
		},
	}
	cmd.Flags().StringVar(&meeting.Date, "date", "", "date du rendez-vous")
	cmd.Flags().StringVar(&meeting.Location, "location", "", "lieu du rendez-vous")
	cmd.Flags().StringVar(&meeting.Message, "message", "", "message au prêteur")
	return cmd
}

func newReportProblemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report-problem <book-id>",
		Short: "Signaler un problème sur un livre",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.reportProblem(cmd.Context(), args[0])
		},
	}
}

// ------------------ Requests ------------------

func newRequestsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "Lister mes demandes d'emprunt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listRequests(cmd.Context())
		},
	}
}

func newRateCmd(a *app) *cobra.Command {
	var stars int
	var comment string
	cmd := &cobra.Command{
		Use:   "rate [request-id]",
		Short: "Noter un emprunt accepté",
		Long:  "Sans argument, liste les emprunts pouvant être notés et les notes en attente d'envoi.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.listRateable(cmd.Context())
			}
			return a.rate(cmd.Context(), args[0], stars, comment)
		},
	}
	cmd.Flags().IntVar(&stars, "stars", 0, "note de 1 à 5")
	cmd.Flags().StringVar(&comment, "comment", "", "commentaire")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [user-id]",
		Short: "Afficher les évaluations d'un utilisateur",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return a.profile(cmd.Context(), id)
		},
	}
}

// ------------------ Moderation ------------------

func newReportsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Lister les signalements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listReports(cmd.Context())
		},
	}
}

func newReportStatusCmd(a *app) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "report-status <report-id> <status>",
		Short: "Changer le statut d'un signalement (admin)",
		Long:  "Statuts : en_attente, traite, resolu.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setReportStatus(cmd.Context(), args[0], library.ReportStatus(args[1]), note)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note de l'administrateur")
	return cmd
}

func newNotificationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Lister les notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listNotifications(cmd.Context())
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Marquer une notification comme lue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.markRead(cmd.Context(), args[0])
		},
	}
}

// ------------------ Shell ------------------

func newThemeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Afficher ou basculer le thème",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.theme(cmd.Context(), len(args) == 1)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Suivre les changements de session (Ctrl+C pour quitter)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context())
		},
	}
}

func categoryNames() string {
	names := []string{string(library.CategoryAll)}
	for _, c := range library.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// parseCategory accepts a category name case-insensitively. Empty means all.
// publishCategory is parseCategory for the publish form, where an empty
// answer picks Informatique.
func publishCategory(s string) (library.Category, error) {
	if strings.TrimSpace(s) == "" {
		return library.CategoryComputing, nil
	}
	return parseCategory(s)
}

func parseCategory(s string) (library.Category, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(library.CategoryAll)) {
		return library.CategoryAll, nil
	}
	for _, c := range library.Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", &library.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}

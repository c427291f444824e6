package main

import (
	"errors"
	"fmt"

	"biblioflow/api"
	"biblioflow/library"
)

const genericMessage = "Une erreur est survenue"

var fieldLabels = map[string]string{
	"email":    "l'email",
	"password": "le mot de passe",
	"title":    "le titre",
	"author":   "l'auteur",
	"date":     "la date du rendez-vous",
	"location": "le lieu du rendez-vous",
	"category": "la catégorie",
	"status":   "le statut",
	"role":     "le rôle",
}

// UserMessage turns an error from the library or the API client into the
// sentence printed to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var unreachable *api.UnreachableError
	if errors.As(err, &unreachable) {
		return fmt.Sprintf("Le serveur %s ne répond pas. Vérifiez qu'il est démarré.", unreachable.BaseURL)
	}
	var creds *library.CredentialsError
	if errors.As(err, &creds) {
		if creds.Message != "" {
			return creds.Message
		}
		return "Email ou mot de passe incorrect"
	}
	var verr *library.ValidationError
	if errors.As(err, &verr) {
		return validationMessage(verr)
	}

	switch {
	case errors.Is(err, errCancelled):
		return "Opération annulée"
	case errors.Is(err, errNotMine):
		return "Cette demande n'existe pas ou ne vous appartient pas"
	case errors.Is(err, library.ErrImageTooLarge), errors.Is(err, api.ErrPayloadTooLarge):
		return "L'image est trop volumineuse pour le serveur. Choisissez une image plus petite."
	case errors.Is(err, library.ErrLoginRequired):
		return "Vous devez être connecté pour effectuer cette action"
	case errors.Is(err, library.ErrForbidden):
		return "Vous n'êtes pas autorisé à effectuer cette action"
	case errors.Is(err, library.ErrUserExists):
		return "Un compte existe déjà avec cet email"
	case errors.Is(err, library.ErrInFlight):
		return "Une demande est déjà en cours d'envoi"
	case errors.Is(err, library.ErrRatingUnset):
		return "Veuillez sélectionner une note"
	case errors.Is(err, library.ErrInvalidTransition):
		return "Ce changement de statut n'est pas autorisé"
	case errors.Is(err, library.ErrBookUnavailable):
		return "Ce livre est actuellement emprunté"
	case errors.Is(err, library.ErrOverlayBusy), errors.Is(err, library.ErrOverlayClosed):
		return "Une autre action est déjà ouverte sur ce livre"
	case errors.Is(err, library.ErrNotLoaded):
		return "Le livre n'est pas encore chargé"
	case errors.Is(err, api.ErrNotFound), errors.Is(err, library.ErrUnknownItem):
		return "Élément introuvable"
	}
	return genericMessage
}

func validationMessage(verr *library.ValidationError) string {
	switch verr.Field {
	case "image":
		return verr.Reason
	case "rating":
		return "Veuillez sélectionner une note entre 1 et 5"
	case "request":
		return "Seuls les emprunts acceptés peuvent être notés"
	}
	if verr.Field == "email" && verr.Reason != "required" {
		return "Adresse email invalide"
	}
	label, ok := fieldLabels[verr.Field]
	if !ok {
		return "Veuillez remplir tous les champs"
	}
	if verr.Field == "category" || verr.Field == "status" || verr.Field == "role" {
		return fmt.Sprintf("Valeur invalide pour %s", label)
	}
	return fmt.Sprintf("Veuillez renseigner %s", label)
}

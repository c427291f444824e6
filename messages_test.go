package main

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"biblioflow/api"
	"biblioflow/library"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unknown", errors.New("boom"), "Une erreur est survenue"},
		{"unreachable", fmt.Errorf("list books: %w", &api.UnreachableError{BaseURL: "http://localhost:5000", Err: errors.New("refused")}),
			"Le serveur http://localhost:5000 ne répond pas. Vérifiez qu'il est démarré."},
		{"server credentials message", &library.CredentialsError{Message: "Compte bloqué"}, "Compte bloqué"},
		{"credentials fallback", &library.CredentialsError{}, "Email ou mot de passe incorrect"},
		{"image too large", fmt.Errorf("publish: %w", library.ErrImageTooLarge),
			"L'image est trop volumineuse pour le serveur. Choisissez une image plus petite."},
		{"payload too large", &api.StatusError{StatusCode: http.StatusRequestEntityTooLarge},
			"L'image est trop volumineuse pour le serveur. Choisissez une image plus petite."},
		{"not found", fmt.Errorf("load: %w", &api.StatusError{StatusCode: http.StatusNotFound}), "Élément introuvable"},
		{"not in the loaded list", fmt.Errorf("notification n-9: %w", library.ErrUnknownItem), "Élément introuvable"},
		{"server error", &api.StatusError{StatusCode: http.StatusInternalServerError}, "Une erreur est survenue"},
		{"login required", library.ErrLoginRequired, "Vous devez être connecté pour effectuer cette action"},
		{"forbidden", fmt.Errorf("rate: %w", library.ErrForbidden), "Vous n'êtes pas autorisé à effectuer cette action"},
		{"user exists", library.ErrUserExists, "Un compte existe déjà avec cet email"},
		{"in flight", library.ErrInFlight, "Une demande est déjà en cours d'envoi"},
		{"rating unset", library.ErrRatingUnset, "Veuillez sélectionner une note"},
		{"transition", library.ErrInvalidTransition, "Ce changement de statut n'est pas autorisé"},
		{"cancelled", errCancelled, "Opération annulée"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestValidationMessages(t *testing.T) {
	tests := []struct {
		field, reason, want string
	}{
		{"email", "required", "Veuillez renseigner l'email"},
		{"email", "not a valid address", "Adresse email invalide"},
		{"title", "required", "Veuillez renseigner le titre"},
		{"location", "a meeting place is required", "Veuillez renseigner le lieu du rendez-vous"},
		{"category", "unknown category \"Cuisine\"", "Valeur invalide pour la catégorie"},
		{"image", "L'image ne doit pas dépasser 5MB", "L'image ne doit pas dépasser 5MB"},
		{"rating", "must be between 1 and 5", "Veuillez sélectionner une note entre 1 et 5"},
		{"mystery", "odd", "Veuillez remplir tous les champs"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			err := fmt.Errorf("submit: %w", &library.ValidationError{Field: tt.field, Reason: tt.reason})
			assert.Equal(t, tt.want, UserMessage(err))
		})
	}
}

package library

import (
	"context"
	"sync"
)

// Link is one entry of the navigation bar.
type Link struct {
	Label string
	Path  string
}

// Links derives the navigation entries visible to user.
func Links(user User) []Link {
	links := []Link{{Label: "Accueil", Path: "/"}}
	if !user.IsGuest() {
		links = append(links, Link{Label: "Mes demandes", Path: "/requests"})
	}

	reports := Link{Label: "Signalements", Path: "/reports"}
	if IsAdmin(user) {
		reports.Label = "Admin"
	}
	links = append(links, reports)

	if user.IsGuest() {
		return append(links, Link{Label: "Connexion", Path: "/auth"})
	}
	if CanPublish(user) {
		links = append(links, Link{Label: "Ajouter un livre", Path: "/add-book"})
	}
	return append(links,
		Link{Label: "Profil", Path: "/profile"},
		Link{Label: "Déconnexion", Path: "/logout"},
	)
}

// Theme is the persisted display preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Shell is the application frame. It keeps exactly one session value, fed by
// the session subscription, and derives everything role-dependent from it.
type Shell struct {
	sessions *SessionStore
	storage  Storage

	mu       sync.RWMutex
	user     User
	onChange []func(User)
}

func NewShell(sessions *SessionStore, storage Storage) *Shell {
	return &Shell{sessions: sessions, storage: storage, user: Guest()}
}

// OnChange registers fn to run after every session change. Register before
// Start.
func (s *Shell) OnChange(fn func(User)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Start subscribes to the session and returns once the first value is
// known. Updates keep flowing until ctx is done.
func (s *Shell) Start(ctx context.Context) error {
	updates, err := s.sessions.Subscribe(ctx)
	if err != nil {
		return err
	}
	select {
	case user, ok := <-updates:
		if ok {
			s.apply(user)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	go func() {
		for user := range updates {
			s.apply(user)
		}
	}()
	return nil
}

func (s *Shell) apply(user User) {
	s.mu.Lock()
	changed := s.user != user
	s.user = user
	callbacks := append([]func(User){}, s.onChange...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range callbacks {
		fn(user)
	}
}

// User is the current session value.
func (s *Shell) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Shell) Links() []Link { return Links(s.User()) }

// Refresh re-reads the session and applies it without waiting for the
// storage watch to report the write.
func (s *Shell) Refresh(ctx context.Context) User {
	user := s.sessions.Current(ctx)
	s.apply(user)
	return user
}

// Logout clears the stored session. The shell applies the change right away
// through the same path the subscription uses.
func (s *Shell) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	s.apply(Guest())
	return nil
}

// Theme reads the stored preference; anything but "dark" is light.
func (s *Shell) Theme(ctx context.Context) (Theme, error) {
	raw, _, err := s.storage.Get(ctx, KeyTheme)
	if err != nil {
		return ThemeLight, err
	}
	if Theme(raw) == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

// ToggleTheme flips and persists the preference.
func (s *Shell) ToggleTheme(ctx context.Context) (Theme, error) {
	current, err := s.Theme(ctx)
	if err != nil {
		return current, err
	}
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	if err := s.storage.Set(ctx, KeyTheme, string(next)); err != nil {
		return current, err
	}
	return next, nil
}

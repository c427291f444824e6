package library

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// NameFromEmail is the display name derived from an address: its local part.
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email", "not a valid address")
	}
	if password == "" {
		return invalid("password", "required")
	}
	return nil
}

// Login authenticates against the service and stores the session. A failed
// attempt leaves the previous session untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return Guest(), err
	}

	res, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return Guest(), fmt.Errorf("login: %w", err)
	}
	if !res.Success || res.User == nil {
		return Guest(), &CredentialsError{Message: res.Error}
	}

	user := User{
		ID:    res.User.ID,
		Name:  res.User.Name,
		Email: res.User.Email,
		Role:  res.User.Role,
	}
	if user.Name == "" {
		user.Name = NameFromEmail(user.Email)
	}
	if err := m.sessions.Set(ctx, user); err != nil {
		return Guest(), fmt.Errorf("store session: %w", err)
	}
	m.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("logged in")
	return user, nil
}

// Signup creates an account. It does not log in.
func (m *Manager) Signup(ctx context.Context, email, password string, role Role) (User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return User{}, err
	}
	if role == "" {
		role = RoleBorrower
	}
	// Admin accounts are not self-service.
	if role != RoleBorrower && role != RoleLender {
		return User{}, invalid("role", fmt.Sprintf("cannot sign up as %q", role))
	}

	existing, err := m.backend.FindUsersByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("check existing account: %w", err)
	}
	if len(existing) > 0 {
		return User{}, ErrUserExists
	}

	created, err := m.backend.CreateUser(ctx, User{
		Email:    email,
		Password: password,
		Role:     role,
		Name:     NameFromEmail(email),
	})
	if err != nil {
		return User{}, fmt.Errorf("create account: %w", err)
	}
	created.Password = ""
	return *created, nil
}

// Logout clears the stored session.
func (m *Manager) Logout(ctx context.Context) error {
	return m.sessions.Clear(ctx)
}

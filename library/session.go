package library

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/hkdf"
)

// DefaultSessionTTL bounds how long a stored login stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

const (
	sessionIssuer  = "biblioflow-cli"
	sessionKeyInfo = "biblioflow session v1"
)

// sessionClaims is the signed form of the session record. The user id is
// the subject.
type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// SessionOptions configures a SessionStore. An empty Secret makes the store
// generate and keep a per-install secret in storage.
type SessionOptions struct {
	Secret string
	TTL    time.Duration
	Logger zerolog.Logger
	Now    func() time.Time
}

// SessionStore is the single source of truth for who is logged in on this
// machine. Records are signed, so editing the stored value by hand logs the
// user out instead of impersonating someone else.
type SessionStore struct {
	storage Storage
	secret  string
	ttl     time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	keyMu sync.Mutex
	key   []byte
}

func NewSessionStore(storage Storage, opts SessionOptions) *SessionStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionStore{
		storage: storage,
		secret:  opts.Secret,
		ttl:     opts.TTL,
		logger:  opts.Logger,
		now:     opts.Now,
	}
}

// signingKey derives the HS256 key once per store.
func (s *SessionStore) signingKey(ctx context.Context) ([]byte, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	if s.key != nil {
		return s.key, nil
	}

	secret := s.secret
	if secret == "" {
		var err error
		if secret, err = s.deviceSecret(ctx); err != nil {
			return nil, err
		}
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	s.key = key
	return key, nil
}

func (s *SessionStore) deviceSecret(ctx context.Context) (string, error) {
	secret, ok, err := s.storage.Get(ctx, KeyDeviceSecret)
	if err != nil {
		return "", err
	}
	if ok && secret != "" {
		return secret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device secret: %w", err)
	}
	secret = hex.EncodeToString(buf)
	if err := s.storage.Set(ctx, KeyDeviceSecret, secret); err != nil {
		return "", err
	}
	return secret, nil
}

// Current returns the logged-in user, or Guest when no valid record exists.
// An expired or tampered record is removed.
func (s *SessionStore) Current(ctx context.Context) User {
	raw, ok, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		s.logger.Error().Err(err).Msg("read session")
		return Guest()
	}
	if !ok || raw == "" {
		return Guest()
	}

	user, err := s.decode(ctx, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Info().Msg("session expired")
		} else {
			s.logger.Warn().Err(err).Msg("discarding unverifiable session record")
		}
		if err := s.storage.Delete(ctx, KeyUser); err != nil {
			s.logger.Error().Err(err).Msg("clear session")
		}
		return Guest()
	}
	return user
}

func (s *SessionStore) decode(ctx context.Context, raw string) (User, error) {
	key, err := s.signingKey(ctx)
	if err != nil {
		return User{}, err
	}

	claims := &sessionClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return User{}, err
	}
	if claims.Subject == "" {
		return User{}, errors.New("session record has no user id")
	}

	return User{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

// Set persists user as the current session. Only id, name, email and role
// are kept.
func (s *SessionStore) Set(ctx context.Context, user User) error {
	if user.IsGuest() {
		return invalid("id", "a session needs a user id")
	}
	signed, err := s.sign(ctx, user)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, KeyUser, signed)
}

func (s *SessionStore) sign(ctx context.Context, user User) (string, error) {
	key, err := s.signingKey(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := sessionClaims{
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Clear logs the current user out.
func (s *SessionStore) Clear(ctx context.Context) error {
	return s.storage.Delete(ctx, KeyUser)
}

// Subscribe emits the current user immediately and again whenever the
// session changes, from this process or another one sharing the storage.
// The channel is closed when ctx is done.
func (s *SessionStore) Subscribe(ctx context.Context) (<-chan User, error) {
	changes, err := s.storage.Watch(ctx, KeyUser)
	if err != nil {
		return nil, err
	}

	out := make(chan User, 1)
	go func() {
		defer close(out)
		last := s.Current(ctx)
		select {
		case out <- last:
		case <-ctx.Done():
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}
			user := s.Current(ctx)
			if user == last {
				continue
			}
			last = user
			select {
			case out <- user:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

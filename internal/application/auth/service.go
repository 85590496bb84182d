package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	authService       = "auth-service"
	useCaseRegister   = "auth.register"
	useCaseLogin      = "auth.login"
	useCaseLogout     = "auth.logout"
	useCaseCreateAdm  = "auth.create_admin"
	useCaseSetRole    = "auth.set_role"
	defaultSessionTTL = 7 * 24 * time.Hour
)

type Service struct {
	users    domain.Repository
	sessions domain.SessionRepository
	hasher   PasswordHasher
	ids      IDGenerator
	tokens   TokenGenerator
	ttl      time.Duration
	ins      observability.Instruments

	// dummyHash keeps login timing similar for unknown emails.
	dummyHash string
}

func NewService(
	users domain.Repository,
	sessions domain.SessionRepository,
	hasher PasswordHasher,
	ids IDGenerator,
	tokens TokenGenerator,
	ttl time.Duration,
	tel observability.Observability,
) *Service {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	dummy, _ := hasher.Hash("minishop-dummy-password")
	return &Service{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		ids:       ids,
		tokens:    tokens,
		ttl:       ttl,
		ins:       observability.Resolve(tel, authService),
		dummyHash: dummy,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type Result struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *Result, err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseRegister, "Register")
	defer func() { call.End(err) }()

	u, err := s.newUser(in.Name, in.Email, in.Phone, in.Password, domain.RoleCustomer)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.users.Insert(ctx, u); err != nil {
		call.Fail("USER_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	call.With(observability.F("user_id", u.ID))
	return s.openSession(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (_ *Result, err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseLogin, "Login")
	defer func() { call.End(err) }()

	normalized, nerr := domain.NormalizeEmail(email)
	if nerr != nil {
		_ = s.hasher.Compare(s.dummyHash, password)
		call.Fail("INVALID_CREDENTIALS")
		return nil, domain.ErrInvalidCredentials
	}
	u, err := s.users.FindByEmail(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		call.Fail("INVALID_CREDENTIALS")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		call.Fail("USER_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		call.Fail("INVALID_CREDENTIALS")
		return nil, domain.ErrInvalidCredentials
	}
	call.With(observability.F("user_id", u.ID))
	return s.openSession(ctx, u)
}

func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseLogout, "Logout")
	defer func() { call.End(err) }()

	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, HashToken(token)); err != nil {
		call.Fail("SESSION_DELETE_FAILED")
		return wrapRepo(err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. Expired sessions are removed.
// It runs on every authenticated request, so it logs nothing on success.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	hash := HashToken(token)
	sess, err := s.sessions.FindSession(ctx, hash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, wrapRepo(err)
	}
	if sess.Expired(time.Now()) {
		_ = s.sessions.DeleteSession(ctx, hash)
		return nil, domain.ErrSessionExpired
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, wrapRepo(err)
	}
	return u, nil
}

// CreateAdmin creates an administrator, or promotes and re-keys the account
// when the email is already registered.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (_ *domain.User, err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseCreateAdm, "CreateAdmin")
	defer func() { call.End(err) }()

	u, err := s.newUser(name, email, "", password, domain.RoleAdmin)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	err = s.users.Insert(ctx, u)
	if errors.Is(err, domain.ErrEmailTaken) {
		existing, ferr := s.users.FindByEmail(ctx, u.Email)
		if ferr != nil {
			call.Fail("USER_LOOKUP_FAILED")
			return nil, wrapRepo(ferr)
		}
		_ = existing.SetRole(domain.RoleAdmin)
		existing.PasswordHash = u.PasswordHash
		if uerr := s.users.Update(ctx, existing); uerr != nil {
			call.Fail("USER_UPDATE_FAILED")
			return nil, wrapRepo(uerr)
		}
		call.Status("PROMOTED")
		return existing, nil
	}
	if err != nil {
		call.Fail("USER_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	return u, nil
}

func (s *Service) SetRole(ctx context.Context, userID string, role domain.Role) (_ *domain.User, err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseSetRole, "SetRole",
		attribute.String("user.id", userID))
	defer func() { call.End(err) }()

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		call.Fail("USER_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	if err := u.SetRole(role); err != nil {
		call.Fail("ROLE_INVALID")
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		call.Fail("USER_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	return u, wrapRepo(err)
}

func (s *Service) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	return users, wrapRepo(err)
}

func (s *Service) newUser(name, email, phone, password string, role domain.Role) (*domain.User, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return domain.New(s.ids.NewID(), name, email, phone, hash, role)
}

func (s *Service) openSession(ctx context.Context, u *domain.User) (*Result, error) {
	token := s.tokens.NewToken()
	now := time.Now().UTC()
	sess := &domain.Session{
		TokenHash: HashToken(token),
		UserID:    u.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, wrapRepo(err)
	}
	return &Result{User: u, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// HashToken is the at-rest form of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrEmailTaken):
		return err
	default:
		return fmt.Errorf("auth: repository: %w", err)
	}
}

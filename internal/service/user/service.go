// Package user handles operator accounts: login, user administration,
// and per-agent monthly credit limits.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/logging"
)

type userRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, email string) error
	ListLimits(ctx context.Context, agentEmail string) ([]domain.AgentLimit, error)
	SetLimit(ctx context.Context, limit domain.AgentLimit) error
}

type Service struct {
	users     userRepo
	jwtSecret string
	jwtExpiry time.Duration
}

func NewService(users userRepo, jwtSecret string, jwtExpiry time.Duration) *Service {
	return &Service{users: users, jwtSecret: jwtSecret, jwtExpiry: jwtExpiry}
}

// ErrInvalidCredentials deliberately does not distinguish a missing user
// from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginResult struct {
	Token string
	User  domain.User
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Login: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("Login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Login: %w", ErrInvalidCredentials)
	}

	token, err := auth.GenerateToken(u.Email, u.Role, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	logging.FromContext(ctx).Info("user logged in", "email", u.Email, "role", u.Role)
	u.PasswordHash = ""
	return &LoginResult{Token: token, User: *u}, nil
}

type CreateRequest struct {
	Email    string
	Name     string
	Role     domain.Role
	Password string
}

func (s *Service) Create(ctx context.Context, session auth.Session, req CreateRequest) (*domain.User, error) {
	if !session.IsAdmin() {
		return nil, fmt.Errorf("Create: %w", domain.ErrForbidden)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("Create: email and name are required: %w", domain.ErrInvalidRequest)
	}
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("Create: invalid role %q: %w", req.Role, domain.ErrInvalidRequest)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("Create: password must be at least 8 characters: %w", domain.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Create: hash password: %w", err)
	}

	u := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	logging.FromContext(ctx).Info("user created",
		"email", u.Email, "role", u.Role, "admin", session.Email)

	u.PasswordHash = ""
	return u, nil
}

func (s *Service) List(ctx context.Context, session auth.Session) ([]domain.User, error) {
	if !session.IsAdmin() {
		return nil, fmt.Errorf("List: %w", domain.ErrForbidden)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

type UpdateRequest struct {
	Name     string
	Role     domain.Role
	Password string // empty keeps the current password
}

func (s *Service) Update(ctx context.Context, session auth.Session, email string, req UpdateRequest) (*domain.User, error) {
	if !session.IsAdmin() {
		return nil, fmt.Errorf("Update: %w", domain.ErrForbidden)
	}
	if !req.Role.IsValid() {
		return nil, fmt.Errorf("Update: invalid role %q: %w", req.Role, domain.ErrInvalidRequest)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	u.Name = strings.TrimSpace(req.Name)
	u.Role = req.Role
	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, fmt.Errorf("Update: password must be at least 8 characters: %w", domain.ErrInvalidRequest)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("Update: hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	u.PasswordHash = ""
	return u, nil
}

// Delete removes an operator account. An administrator cannot delete
// their own account.
func (s *Service) Delete(ctx context.Context, session auth.Session, email string) error {
	if !session.IsAdmin() {
		return fmt.Errorf("Delete: %w", domain.ErrForbidden)
	}
	if strings.EqualFold(email, session.Email) {
		return fmt.Errorf("Delete: %w", domain.ErrSelfDelete)
	}
	if err := s.users.Delete(ctx, email); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	logging.FromContext(ctx).Info("user deleted", "email", email, "admin", session.Email)
	return nil
}

func (s *Service) ListLimits(ctx context.Context, session auth.Session, agentEmail string) ([]domain.AgentLimit, error) {
	// Agents may inspect their own limits; everything else is admin-only.
	if !session.IsAdmin() && !strings.EqualFold(agentEmail, session.Email) {
		return nil, fmt.Errorf("ListLimits: %w", domain.ErrForbidden)
	}
	limits, err := s.users.ListLimits(ctx, agentEmail)
	if err != nil {
		return nil, fmt.Errorf("ListLimits: %w", err)
	}
	return limits, nil
}

func (s *Service) SetLimit(ctx context.Context, session auth.Session, limit domain.AgentLimit) error {
	if !session.IsAdmin() {
		return fmt.Errorf("SetLimit: %w", domain.ErrForbidden)
	}
	if limit.MonthlyLimit.LessThan(decimal.Zero) {
		return fmt.Errorf("SetLimit: %w", domain.ErrInvalidAmount)
	}
	if _, err := s.users.GetByEmail(ctx, limit.AgentEmail); err != nil {
		return fmt.Errorf("SetLimit: %w", err)
	}
	if err := s.users.SetLimit(ctx, limit); err != nil {
		return fmt.Errorf("SetLimit: %w", err)
	}
	logging.FromContext(ctx).Info("agent limit set",
		"agent", limit.AgentEmail, "currency", limit.Currency,
		"limit", limit.MonthlyLimit, "admin", session.Email)
	return nil
}

// Package client manages borrower records and the eligibility gate.
// Marking a client not eligible blocks new loans for them; only an
// administrator can restore eligibility.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/logging"
)

type clientRepo interface {
	GetByID(ctx context.Context, nationalID string) (*domain.Client, error)
	List(ctx context.Context, search string) ([]domain.Client, error)
	Create(ctx context.Context, c *domain.Client) error
	Update(ctx context.Context, c *domain.Client) error
	UpdateStatus(ctx context.Context, nationalID string, status domain.ClientStatus) error
	Delete(ctx context.Context, nationalID string) error
}

type Service struct {
	clients clientRepo
}

func NewService(clients clientRepo) *Service {
	return &Service{clients: clients}
}

type CreateRequest struct {
	NationalID string
	FullName   string

	Phone   string
	Email   string
	Address string

	Employer    string
	JobTitle    string
	JobCategory string

	BankName    string
	BankAccount string
	BankAlias   string

	ReferrerName string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Client, error) {
	nationalID := strings.TrimSpace(req.NationalID)
	fullName := strings.TrimSpace(req.FullName)
	if nationalID == "" || fullName == "" {
		return nil, fmt.Errorf("Create: national id and full name are required: %w", domain.ErrInvalidRequest)
	}

	c := &domain.Client{
		NationalID:   nationalID,
		FullName:     fullName,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		Employer:     req.Employer,
		JobTitle:     req.JobTitle,
		JobCategory:  req.JobCategory,
		BankName:     req.BankName,
		BankAccount:  req.BankAccount,
		BankAlias:    req.BankAlias,
		ReferrerName: req.ReferrerName,
		Status:       domain.ClientStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.clients.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	logging.FromContext(ctx).Info("client registered", "client_id", c.NationalID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, nationalID string) (*domain.Client, error) {
	c, err := s.clients.GetByID(ctx, nationalID)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, search string) ([]domain.Client, error) {
	clients, err := s.clients.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return clients, nil
}

// Update rewrites the client's contact, employment, and bank details. The
// national ID and status are untouched.
func (s *Service) Update(ctx context.Context, nationalID string, req CreateRequest) (*domain.Client, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("Update: full name is required: %w", domain.ErrInvalidRequest)
	}

	c, err := s.clients.GetByID(ctx, nationalID)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	c.FullName = fullName
	c.Phone = req.Phone
	c.Email = req.Email
	c.Address = req.Address
	c.Employer = req.Employer
	c.JobTitle = req.JobTitle
	c.JobCategory = req.JobCategory
	c.BankName = req.BankName
	c.BankAccount = req.BankAccount
	c.BankAlias = req.BankAlias
	c.ReferrerName = req.ReferrerName

	if err := s.clients.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	return c, nil
}

// MarkNotEligible flags a client so no further loans can be originated
// for them. Any agent can flag.
func (s *Service) MarkNotEligible(ctx context.Context, session auth.Session, nationalID string) error {
	if err := s.clients.UpdateStatus(ctx, nationalID, domain.ClientStatusNotEligible); err != nil {
		return fmt.Errorf("MarkNotEligible: %w", err)
	}
	logging.FromContext(ctx).Info("client marked not eligible",
		"client_id", nationalID, "agent", session.Email)
	return nil
}

// RestoreEligibility lifts the block. Administrators only.
func (s *Service) RestoreEligibility(ctx context.Context, session auth.Session, nationalID string) error {
	if !session.IsAdmin() {
		return fmt.Errorf("RestoreEligibility: %w", domain.ErrForbidden)
	}
	if err := s.clients.UpdateStatus(ctx, nationalID, domain.ClientStatusActive); err != nil {
		return fmt.Errorf("RestoreEligibility: %w", err)
	}
	logging.FromContext(ctx).Info("client eligibility restored",
		"client_id", nationalID, "admin", session.Email)
	return nil
}

func (s *Service) Delete(ctx context.Context, session auth.Session, nationalID string) error {
	if !session.IsAdmin() {
		return fmt.Errorf("Delete: %w", domain.ErrForbidden)
	}
	if err := s.clients.Delete(ctx, nationalID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	logging.FromContext(ctx).Info("client deleted",
		"client_id", nationalID, "admin", session.Email)
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/client"
)

type clientService interface {
	Create(ctx context.Context, req client.CreateRequest) (*domain.Client, error)
	Get(ctx context.Context, nationalID string) (*domain.Client, error)
	List(ctx context.Context, search string) ([]domain.Client, error)
	Update(ctx context.Context, nationalID string, req client.CreateRequest) (*domain.Client, error)
	MarkNotEligible(ctx context.Context, session auth.Session, nationalID string) error
	RestoreEligibility(ctx context.Context, session auth.Session, nationalID string) error
	Delete(ctx context.Context, session auth.Session, nationalID string) error
}

type ClientHandler struct {
	clients clientService
}

func NewClientHandler(clients clientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type clientRequest struct {
	NationalID string `json:"national_id"`
	FullName   string `json:"full_name"`

	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`

	Employer    string `json:"employer"`
	JobTitle    string `json:"job_title"`
	JobCategory string `json:"job_category"`

	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`
	BankAlias   string `json:"bank_alias"`

	ReferrerName string `json:"referrer_name"`
}

func (r clientRequest) Validate() []FieldError {
	var errs []FieldError
	if r.NationalID == "" {
		errs = append(errs, FieldError{Field: "national_id", Message: "required"})
	}
	if r.FullName == "" {
		errs = append(errs, FieldError{Field: "full_name", Message: "required"})
	}
	return errs
}

func (r clientRequest) toCreateRequest() client.CreateRequest {
	return client.CreateRequest{
		NationalID:   r.NationalID,
		FullName:     r.FullName,
		Phone:        r.Phone,
		Email:        r.Email,
		Address:      r.Address,
		Employer:     r.Employer,
		JobTitle:     r.JobTitle,
		JobCategory:  r.JobCategory,
		BankName:     r.BankName,
		BankAccount:  r.BankAccount,
		BankAlias:    r.BankAlias,
		ReferrerName: r.ReferrerName,
	}
}

type clientDTO struct {
	NationalID string `json:"national_id"`
	FullName   string `json:"full_name"`

	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`

	Employer    string `json:"employer"`
	JobTitle    string `json:"job_title"`
	JobCategory string `json:"job_category"`

	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`
	BankAlias   string `json:"bank_alias"`

	ReferrerName string    `json:"referrer_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toClientDTO(c *domain.Client) clientDTO {
	return clientDTO{
		NationalID:   c.NationalID,
		FullName:     c.FullName,
		Phone:        c.Phone,
		Email:        c.Email,
		Address:      c.Address,
		Employer:     c.Employer,
		JobTitle:     c.JobTitle,
		JobCategory:  c.JobCategory,
		BankName:     c.BankName,
		BankAccount:  c.BankAccount,
		BankAlias:    c.BankAlias,
		ReferrerName: c.ReferrerName,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
	}
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	c, err := h.clients.Create(r.Context(), req.toCreateRequest())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toClientDTO(c))
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toClientDTO(c))
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]clientDTO, 0, len(clients))
	for i := range clients {
		dtos = append(dtos, toClientDTO(&clients[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.FullName == "" {
		RespondValidationError(w, []FieldError{{Field: "full_name", Message: "required"}})
		return
	}

	c, err := h.clients.Update(r.Context(), r.PathValue("id"), req.toCreateRequest())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toClientDTO(c))
}

type eligibilityRequest struct {
	Eligible bool `json:"eligible"`
}

// SetEligibility flips the client's eligibility gate. Blocking is open to
// all agents; restoring requires an administrator, enforced by the
// service.
func (h *ClientHandler) SetEligibility(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req eligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var err error
	if req.Eligible {
		err = h.clients.RestoreEligibility(r.Context(), session, r.PathValue("id"))
	} else {
		err = h.clients.MarkNotEligible(r.Context(), session, r.PathValue("id"))
	}
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	c, err := h.clients.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toClientDTO(c))
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	if err := h.clients.Delete(r.Context(), session, r.PathValue("id")); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"national_id": r.PathValue("id")})
}

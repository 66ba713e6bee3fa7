package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/user"
)

type userService interface {
	Create(ctx context.Context, session auth.Session, req user.CreateRequest) (*domain.User, error)
	List(ctx context.Context, session auth.Session) ([]domain.User, error)
	Update(ctx context.Context, session auth.Session, email string, req user.UpdateRequest) (*domain.User, error)
	Delete(ctx context.Context, session auth.Session, email string) error
	ListLimits(ctx context.Context, session auth.Session, agentEmail string) ([]domain.AgentLimit, error)
	SetLimit(ctx context.Context, session auth.Session, limit domain.AgentLimit) error
}

type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

type userDTO struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (r createUserRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	}
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if !domain.Role(r.Role).IsValid() {
		errs = append(errs, FieldError{Field: "role", Message: "must be admin or employee"})
	}
	if len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	return errs
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	u, err := h.users.Create(r.Context(), session, user.CreateRequest{
		Email:    req.Email,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
		Password: req.Password,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toUserDTO(u))
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	users, err := h.users.List(r.Context(), session)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]userDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, toUserDTO(&users[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type updateUserRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (r updateUserRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if !domain.Role(r.Role).IsValid() {
		errs = append(errs, FieldError{Field: "role", Message: "must be admin or employee"})
	}
	if r.Password != "" && len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	return errs
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	u, err := h.users.Update(r.Context(), session, r.PathValue("email"), user.UpdateRequest{
		Name:     req.Name,
		Role:     domain.Role(req.Role),
		Password: req.Password,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(u))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	if err := h.users.Delete(r.Context(), session, r.PathValue("email")); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"email": r.PathValue("email")})
}

type agentLimitDTO struct {
	AgentEmail   string          `json:"agent_email"`
	Currency     string          `json:"currency"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

func (h *UserHandler) ListLimits(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limits, err := h.users.ListLimits(r.Context(), session, r.PathValue("email"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]agentLimitDTO, 0, len(limits))
	for _, l := range limits {
		dtos = append(dtos, agentLimitDTO{
			AgentEmail:   l.AgentEmail,
			Currency:     string(l.Currency),
			MonthlyLimit: l.MonthlyLimit,
		})
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type setLimitRequest struct {
	Currency     string          `json:"currency"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

func (h *UserHandler) SetLimit(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req setLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	currency, err := domain.NormalizeCurrency(req.Currency)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	err = h.users.SetLimit(r.Context(), session, domain.AgentLimit{
		AgentEmail:   r.PathValue("email"),
		Currency:     currency,
		MonthlyLimit: req.MonthlyLimit,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, agentLimitDTO{
		AgentEmail:   r.PathValue("email"),
		Currency:     string(currency),
		MonthlyLimit: req.MonthlyLimit,
	})
}

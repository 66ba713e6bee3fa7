package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
)

type referrerRepository interface {
	Create(ctx context.Context, ref *domain.Referrer) error
	List(ctx context.Context) ([]domain.Referrer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReferrerHandler struct {
	referrers referrerRepository
}

func NewReferrerHandler(referrers referrerRepository) *ReferrerHandler {
	return &ReferrerHandler{referrers: referrers}
}

type referrerRequest struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Contact    string `json:"contact"`
}

type referrerDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id"`
	Contact    string    `json:"contact"`
	CreatedAt  time.Time `json:"created_at"`
}

func toReferrerDTO(ref *domain.Referrer) referrerDTO {
	return referrerDTO{
		ID:         ref.ID,
		Name:       ref.Name,
		NationalID: ref.NationalID,
		Contact:    ref.Contact,
		CreatedAt:  ref.CreatedAt,
	}
}

func (h *ReferrerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req referrerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Name == "" {
		RespondValidationError(w, []FieldError{{Field: "name", Message: "required"}})
		return
	}

	ref := &domain.Referrer{
		ID:         uuid.New(),
		Name:       req.Name,
		NationalID: req.NationalID,
		Contact:    req.Contact,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.referrers.Create(r.Context(), ref); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toReferrerDTO(ref))
}

func (h *ReferrerHandler) List(w http.ResponseWriter, r *http.Request) {
	referrers, err := h.referrers.List(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]referrerDTO, 0, len(referrers))
	for i := range referrers {
		dtos = append(dtos, toReferrerDTO(&referrers[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ReferrerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	if !session.IsAdmin() {
		RespondAppError(w, ErrAdminRequired, nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.referrers.Delete(r.Context(), id); err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"id": id.String()})
}

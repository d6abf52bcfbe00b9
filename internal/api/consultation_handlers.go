package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/automarket/internal/api/middleware"
	"github.com/example/automarket/internal/consultation"
	"github.com/example/automarket/internal/model"
)

// ConsultationHandlers handles consultation HTTP requests
type ConsultationHandlers struct {
	consultationService *consultation.Service
}

// NewConsultationHandlers creates a new ConsultationHandlers instance
func NewConsultationHandlers(svc *consultation.Service) *ConsultationHandlers {
	return &ConsultationHandlers{consultationService: svc}
}

// CreateConsultation opens a new consultation for the caller
func (h *ConsultationHandlers) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.consultationService.Create(r.Context(), middleware.GetUserID(r.Context()), req.Subject, req.Message)
	if err != nil {
		respondConsultationError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// GetConsultations lists the caller's consultations. Advisors see the ones
// assigned to them, everyone else the ones they opened.
func (h *ConsultationHandlers) GetConsultations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		consultations []*model.Consultation
		err           error
	)
	if claims.Role == model.RoleAdvisor {
		consultations, err = h.consultationService.ListForAdvisor(r.Context(), claims.UserID)
	} else {
		consultations, err = h.consultationService.ListForUser(r.Context(), claims.UserID)
	}
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if consultations == nil {
		consultations = []*model.Consultation{}
	}
	respondJSON(w, http.StatusOK, consultations)
}

// GetConsultation returns one consultation
func (h *ConsultationHandlers) GetConsultation(w http.ResponseWriter, r *http.Request) {
	c, err := h.consultationService.Get(r.Context(), middleware.GetUserID(r.Context()), isAdmin(r), chi.URLParam(r, "id"))
	if err != nil {
		respondConsultationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// AssignConsultation routes a consultation to an advisor (admin only)
func (h *ConsultationHandlers) AssignConsultation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdvisorID string `json:"advisor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.consultationService.Assign(r.Context(), chi.URLParam(r, "id"), req.AdvisorID)
	if err != nil {
		respondConsultationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// RespondConsultation marks a consultation as answered (advisor only)
func (h *ConsultationHandlers) RespondConsultation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.consultationService.Respond(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		respondConsultationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func respondConsultationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consultation.ErrEmptyMessage),
		errors.Is(err, consultation.ErrNotAdvisor):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, consultation.ErrNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, consultation.ErrNotAuthorized):
		respondJSONError(w, err.Error(), http.StatusForbidden)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

package handler

import (
	"net/http"

	"resto-be/internal/container"
	"resto-be/internal/domain"
	"resto-be/internal/middleware"
	"resto-be/pkg/errors"
)

// ProfileHandler handles profile read and update requests
type ProfileHandler struct {
	container *container.Container
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(container *container.Container) *ProfileHandler {
	return &ProfileHandler{
		container: container,
	}
}

// Get handles GET /api/user/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	profile, err := h.container.GetProfileService().GetProfile(r.Context(), claims.Sub)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, profile, log)
}

// Update handles PUT /api/user/profile. Only the allow-listed fields are
// applied; unknown keys in the body are ignored.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	update := &domain.ProfileUpdate{}
	if err := decodeBody(r, update); err != nil {
		writeError(w, err, log)
		return
	}

	profile, err := h.container.GetProfileService().UpdateProfile(r.Context(), claims.Sub, update)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, profile, log)
}

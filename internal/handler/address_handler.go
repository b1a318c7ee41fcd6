package handler

import (
	"net/http"

	"resto-be/internal/container"
	"resto-be/internal/domain"
	"resto-be/internal/middleware"
	"resto-be/pkg/errors"
)

// AddressHandler handles delivery address CRUD requests
type AddressHandler struct {
	container *container.Container
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(container *container.Container) *AddressHandler {
	return &AddressHandler{
		container: container,
	}
}

// List handles GET /api/user/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	addresses, err := h.container.GetProfileService().ListAddresses(r.Context(), claims.Sub)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]domain.Address{"addresses": addresses}, log)
}

// Add handles POST /api/user/addresses
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	req := &domain.AddAddressRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	address, err := h.container.GetProfileService().AddAddress(r.Context(), claims.Sub, req)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusCreated, address, log)
}

// Update handles PUT /api/user/addresses
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	req := &domain.UpdateAddressRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	if req.ID == "" {
		writeError(w, errors.NewValidationError("Address ID is required", nil), log)
		return
	}

	address, err := h.container.GetProfileService().UpdateAddress(r.Context(), claims.Sub, req)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, address, log)
}

// Delete handles DELETE /api/user/addresses?id=<addressId>
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	addressID := r.URL.Query().Get("id")
	if addressID == "" {
		writeError(w, errors.NewValidationError("Address ID is required", nil), log)
		return
	}

	if err := h.container.GetProfileService().DeleteAddress(r.Context(), claims.Sub, addressID); err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, &domain.StatusResponse{Status: true, Message: "Address deleted successfully"}, log)
}

package handler

import (
	"errors"
	"net/http"

	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/delivery/http/middleware"
	"go-clinic-scheduler/internal/service"
	"go-clinic-scheduler/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type CredentialHandler struct {
	credentialService service.CredentialService
}

func NewCredentialHandler(credentialService service.CredentialService) *CredentialHandler {
	return &CredentialHandler{credentialService: credentialService}
}

// ClaimCredential hands the pending initial secret to front-desk staff. It can
// be claimed once.
func (h *CredentialHandler) ClaimCredential(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	userID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}

	secret, err := h.credentialService.Claim(r.Context(), adminID, userID)
	if err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			response.NotFound(w, "No pending credential for user")
			return
		}
		response.InternalServerError(w, "Failed to claim credential")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.Success(w, http.StatusOK, "Credential claimed", dto.CredentialClaimResponse{
		UserID:        userID,
		InitialSecret: secret,
	})
}

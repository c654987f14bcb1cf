package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/services"
	"github.com/Jkinney331/CombatID-sub001/pkg/logger"
	"github.com/Jkinney331/CombatID-sub001/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplianceHandler handles HTTP requests for privacy workflows.
type ComplianceHandler struct {
	Service *services.ComplianceService
}

// NewComplianceHandler creates a new instance of ComplianceHandler.
func NewComplianceHandler(service *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{Service: service}
}

// GET /compliance/export
func (h *ComplianceHandler) ExportUserDataHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	export, err := h.Service.ExportUserData(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		logger.Log.Errorf("Failed to export user data: %v", err)
		http.Error(w, "Failed to export user data", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(export)
}

// POST /compliance/delete-request
func (h *ComplianceHandler) RequestDataDeletionHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	ack, err := h.Service.RequestDataDeletion(r.Context(), userID)
	if err != nil {
		logger.Log.Errorf("Failed to record data deletion request: %v", err)
		http.Error(w, "Failed to request data deletion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(ack)
}

// POST /compliance/signup-consents
func (h *ComplianceHandler) SignupConsentsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	var body struct {
		Types []models.ConsentType `json:"types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	records, err := h.Service.GrantSignupConsents(r.Context(), userID, body.Types, clientIP(r), r.UserAgent())
	if err != nil {
		logger.Log.Errorf("Failed to grant signup consents: %v", err)
		http.Error(w, "Failed to grant consents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(records)
}

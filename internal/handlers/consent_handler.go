package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/services"
	"github.com/Jkinney331/CombatID-sub001/pkg/logger"
	"github.com/Jkinney331/CombatID-sub001/pkg/middleware"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConsentHandler handles HTTP requests for the consent ledger.
type ConsentHandler struct {
	Service *services.ConsentService
}

// NewConsentHandler creates a new instance of ConsentHandler.
func NewConsentHandler(service *services.ConsentService) *ConsentHandler {
	return &ConsentHandler{Service: service}
}

// clientIP extracts the caller's address for consent audit metadata.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GET /consent/status
func (h *ConsentHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	statuses, err := h.Service.Status(r.Context(), userID)
	if err != nil {
		logger.Log.Errorf("Failed to get consent status: %v", err)
		http.Error(w, "Failed to get consent status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

// GET /consent/required
func (h *ConsentHandler) GetRequiredHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"required": models.RequiredConsents,
		"versions": h.Service.Versions(),
	})
}

// GET /consent/missing
func (h *ConsentHandler) GetMissingHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	missing, err := h.Service.MissingConsents(r.Context(), userID)
	if err != nil {
		logger.Log.Errorf("Failed to get missing consents: %v", err)
		http.Error(w, "Failed to get missing consents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(missing)
}

// GET /consent/history?type=
func (h *ConsentHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	consentType := models.ConsentType(r.URL.Query().Get("type"))

	history, err := h.Service.History(r.Context(), userID, consentType)
	if err != nil {
		logger.Log.Errorf("Failed to get consent history: %v", err)
		http.Error(w, "Failed to get consent history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

// POST /consent/grant
func (h *ConsentHandler) GrantConsentHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	var body struct {
		Type    models.ConsentType `json:"type"`
		Granted bool               `json:"granted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	record, err := h.Service.Grant(r.Context(), services.GrantConsentDTO{
		UserID:    userID,
		Type:      body.Type,
		Granted:   body.Granted,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.Errorf("Failed to grant consent: %v", err)
		http.Error(w, "Failed to grant consent", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(record)
}

// POST /consent/grant-bulk
func (h *ConsentHandler) GrantBulkHandler(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.Service.GrantBulk(r.Context(), userID, body.Types, clientIP(r), r.UserAgent())
	if err != nil {
		logger.Log.Errorf("Failed to grant bulk consents: %v", err)
		http.Error(w, "Failed to grant consents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(records)
}

// PUT /consent/revoke/{type}
func (h *ConsentHandler) RevokeConsentHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID, _ := primitive.ObjectIDFromHex(claims.UserID)

	vars := mux.Vars(r)
	consentType := models.ConsentType(vars["type"])

	record, err := h.Service.Revoke(r.Context(), userID, consentType)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			http.Error(w, "Consent record not found", http.StatusNotFound)
		case errors.Is(err, models.ErrConsentRequired), errors.Is(err, models.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Log.Errorf("Failed to revoke consent: %v", err)
			http.Error(w, "Failed to revoke consent", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

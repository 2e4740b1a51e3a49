package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yucheng-lin/twscan/internal/scan"
	"github.com/yucheng-lin/twscan/internal/store"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// ScanHandler exposes the trigger and status endpoints
type ScanHandler struct {
	pipeline     *scan.Pipeline
	store        *store.Store
	triggerToken string
	logger       *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(pipeline *scan.Pipeline, st *store.Store, triggerToken string, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		pipeline:     pipeline,
		store:        st,
		triggerToken: triggerToken,
		logger:       log,
	}
}

// Trigger starts one poll cycle. Accepts an optional profile override via
// the "profile" query parameter and "force=true" to bypass the scheduler
// guard.
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing trigger token")
		return
	}

	profile := r.URL.Query().Get("profile")
	force := r.URL.Query().Get("force") == "true"

	result, err := h.pipeline.RunCycle(r.Context(), profile, force)
	if err != nil {
		// a failed cycle is a distinct signal from a cycle that found nothing
		h.logger.WithError(err).Error("Cycle failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Status returns the most recent cycle history
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.RecentCycles(20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cycles": records,
	})
}

// authorized checks the bearer token when one is configured
func (h *ScanHandler) authorized(r *http.Request) bool {
	if h.triggerToken == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		// also accept the token as a query parameter for timer webhooks
		token = r.URL.Query().Get("token")
	}

	return token == h.triggerToken
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package activity

import (
	"encoding/json"
	"net/http"
	"strconv"

	myErr "feedback-portal/internal/types/errors"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	defaultTop = 3
	maxTop     = 100
)

type Handler struct {
	service ActivityService
	logger  *zap.SugaredLogger
}

func NewHandler(service ActivityService, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) GetUserActivity(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	counters, err := h.service.GetActivity(r.Context(), username)
	if err != nil {
		h.logger.Errorf("Failed to get user activity: %v", err)
		myErr.SendErrorTo(w, err, http.StatusInternalServerError, h.logger)
		return
	}

	if len(counters) == 0 {
		counters = []Counter{} // Пустой массив вместо null
	}

	writeJSON(w, counters, h.logger)
}

func (h *Handler) GetTopContributors(w http.ResponseWriter, r *http.Request) {
	topN := defaultTop // По умолчанию
	if topParam := r.URL.Query().Get("top"); topParam != "" {
		if n, err := strconv.Atoi(topParam); err == nil && n > 0 {
			topN = min(n, maxTop)
		}
	}

	contributors, err := h.service.TopContributors(r.Context(), topN)
	if err != nil {
		h.logger.Errorf("Failed to get top contributors: %v", err)
		myErr.SendErrorTo(w, err, http.StatusInternalServerError, h.logger)
		return
	}

	if len(contributors) == 0 {
		contributors = []Contributor{}
	}

	writeJSON(w, contributors, h.logger)
}

func writeJSON(w http.ResponseWriter, v any, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

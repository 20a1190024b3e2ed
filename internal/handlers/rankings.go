package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizhub/ranking-api/internal/logic"
	"github.com/quizhub/ranking-api/internal/models"
)

// UpdateScore sets a user's cumulative score and returns the resulting entry
// @Summary Update User Score
// @Tags Rankings
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param body body models.UpdateScoreRequest true "New score"
// @Success 200 {object} models.RankEntry "Resulting rank entry"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "User Not Found"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /rankings/{userId}/score [put]
func (h *Handler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing user ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	var req models.UpdateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Score is required and must be non-negative")
		return
	}

	entry, err := h.ranking.UpdateUserScore(r.Context(), userID, *req.Score)
	if err != nil {
		if errors.Is(err, logic.ErrUserNotFound) {
			h.errorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Errorw("Failed to update score", "user_id", userID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to update score")
		return
	}

	h.jsonResponse(w, http.StatusOK, entry)
}

// GetUserRanking returns one user's rank entry enriched with identity
// @Summary Get User Ranking
// @Tags Rankings
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} models.RankedUser "Rank entry"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /rankings/{userId} [get]
func (h *Handler) GetUserRanking(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	ranked, err := h.leaderboard.GetUserRanking(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, logic.ErrUserNotFound):
			h.errorResponse(w, http.StatusNotFound, "User not found")
		case errors.Is(err, logic.ErrRankingNotFound):
			h.errorResponse(w, http.StatusNotFound, "User has no ranking yet")
		default:
			h.logger.Errorw("Failed to get user ranking", "user_id", userID, "error", err)
			h.errorResponse(w, http.StatusInternalServerError, "Failed to get ranking")
		}
		return
	}

	h.jsonResponse(w, http.StatusOK, ranked)
}

// GetLeaderboard returns the full leaderboard, descending by score
// @Summary Get Full Leaderboard
// @Tags Rankings
// @Produce json
// @Success 200 {object} map[string]interface{} "Leaderboard"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /leaderboard [get]
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.leaderboard.GetAllRankings(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to load leaderboard", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rankings": rankings,
		"total":    len(rankings),
	})
}

// GetTopRankings returns the first N entries of the leaderboard
// @Summary Get Top Rankings
// @Tags Rankings
// @Produce json
// @Param limit query int false "Limit" default(25)
// @Success 200 {object} map[string]interface{} "Top rankings"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /leaderboard/top [get]
func (h *Handler) GetTopRankings(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	rankings, err := h.leaderboard.GetTopRankings(r.Context(), limit)
	if err != nil {
		h.logger.Errorw("Failed to load top rankings", "limit", limit, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load top rankings")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rankings": rankings,
		"limit":    limit,
	})
}

// GetScoreHistory returns a user's score-change trail
// @Summary Get Score History
// @Tags Rankings
// @Produce json
// @Param userId path string true "User ID"
// @Param limit query int false "Limit" default(100)
// @Success 200 {object} map[string]interface{} "Score history"
// @Failure 503 {object} map[string]string "History Disabled"
// @Router /rankings/{userId}/history [get]
func (h *Handler) GetScoreHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "Score history is not enabled")
		return
	}

	userID := chi.URLParam(r, "userId")
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	points, err := h.history.GetScoreHistory(r.Context(), userID, limit)
	if err != nil {
		h.logger.Errorw("Failed to load score history", "user_id", userID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to load score history")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"history": points,
	})
}

// Recalculate triggers a full rank recalculation
// @Summary Recalculate All Rankings
// @Description Administrative maintenance operation; rewrites every rank atomically
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string "Recalculated"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /admin/recalculate [post]
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	if err := h.ranking.RecalculateAllRankings(r.Context()); err != nil {
		h.logger.Errorw("Recalculation failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Recalculation failed")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "recalculated"})
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/middleware"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/request"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/response"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/leaderboard"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/scores"
)

// ScoreHandler handles round submission, stats and the leaderboard
type ScoreHandler struct {
	scores   *scores.Service
	notifier *leaderboard.Notifier
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(scoreService *scores.Service, notifier *leaderboard.Notifier) *ScoreHandler {
	return &ScoreHandler{
		scores:   scoreService,
		notifier: notifier,
	}
}

// Submit handles POST /api/v1/scores
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	result, err := h.scores.Submit(r.Context(), player, scores.Submission{
		TotalShots:  req.TotalShots,
		TotalHoles:  req.TotalHoles,
		ScoreByHole: req.ScoreByHole,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoreResponseFromResult(result))
}

// Stats handles GET /api/v1/players/{username}/stats
func (h *ScoreHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scores.Stats(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, stats)
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *ScoreHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Leaderboard{Leaders: h.notifier.Leaders()})
}

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
	"github.com/rocketscienceinc/tictactoe-relay/internal/repository"
)

const defaultMatchesLimit = 20

type Handlers interface {
	StatsHandler(w http.ResponseWriter, r *http.Request)
	MatchesHandler(w http.ResponseWriter, r *http.Request)
	MatchHandler(w http.ResponseWriter, r *http.Request)
}

type statsDep interface {
	Stats() map[entity.Status]int
}

type matchesDep interface {
	GetByID(ctx context.Context, sessionID string, round int) (*entity.MatchResult, error)
	Recent(ctx context.Context, limit int64) ([]entity.MatchResult, error)
}

type handlers struct {
	logger *slog.Logger

	stats    statsDep
	matches  matchesDep
	maxLimit int64
}

// NewHandlers - maxLimit caps the limit query parameter of /matches.
func NewHandlers(logger *slog.Logger, stats statsDep, matches matchesDep, maxLimit int64) Handlers {
	return &handlers{
		logger:   logger.With("component", "rest"),
		stats:    stats,
		matches:  matches,
		maxLimit: maxLimit,
	}
}

type statsResponse struct {
	Sessions map[entity.Status]int `json:"sessions"`
	Total    int                   `json:"total"`
}

func (that *handlers) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	stats := that.stats.Stats()

	total := 0
	for _, n := range stats {
		total += n
	}

	that.writeJSON(w, http.StatusOK, statsResponse{Sessions: stats, Total: total})
}

func (that *handlers) MatchesHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "MatchesHandler")

	limit := int64(defaultMatchesLimit)

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		limit = parsed
	}

	if that.maxLimit > 0 && limit > that.maxLimit {
		limit = that.maxLimit
	}

	matches, err := that.matches.Recent(r.Context(), limit)
	if err != nil {
		log.Error("failed to load recent matches", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if matches == nil {
		matches = []entity.MatchResult{}
	}

	that.writeJSON(w, http.StatusOK, matches)
}

// MatchHandler serves GET /matches/{id}/{round}.
func (that *handlers) MatchHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "MatchHandler")

	sessionID := r.PathValue("id")

	round, err := strconv.Atoi(r.PathValue("round"))
	if err != nil || round < 0 || sessionID == "" {
		http.Error(w, "invalid match", http.StatusBadRequest)
		return
	}

	match, err := that.matches.GetByID(r.Context(), sessionID, round)
	if errors.Is(err, repository.ErrMatchNotFound) {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to load match", "sessionID", sessionID, "round", round, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, http.StatusOK, match)
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/FitchII-cod/billiard-tracker/internal/domain"
	"github.com/FitchII-cod/billiard-tracker/internal/repository"
	"github.com/FitchII-cod/billiard-tracker/internal/service"

	"github.com/rs/zerolog"
)

// Server exposes the JSON API. All rating semantics live in the service
// layer; handlers only decode, dispatch and encode.
type Server struct {
	players *service.PlayerService
	ratings *service.RatingService
	stats   *service.StatsService
	admin   *service.AdminService
	logger  zerolog.Logger
}

func New(players *service.PlayerService, ratings *service.RatingService, stats *service.StatsService, admin *service.AdminService, logger zerolog.Logger) *Server {
	return &Server{players: players, ratings: ratings, stats: stats, admin: admin, logger: logger}
}

// Routes wires every endpoint onto a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("POST /players", s.handleCreatePlayer)
	mux.HandleFunc("GET /players", s.handleListPlayers)
	mux.HandleFunc("GET /players/{id}", s.handleGetPlayer)
	mux.HandleFunc("GET /players/{id}/summary", s.handlePlayerSummary)

	mux.HandleFunc("POST /matches", s.handleCreateMatch)
	mux.HandleFunc("PUT /matches/{id}", s.withAdmin(s.handleUpdateMatch))
	mux.HandleFunc("DELETE /matches/{id}", s.withAdmin(s.handleDeleteMatch))

	mux.HandleFunc("GET /leaderboard/{format}", s.handleLeaderboard)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /head-to-head", s.handleHeadToHead)

	mux.HandleFunc("POST /admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /admin/settings", s.withAdmin(s.handleUpdateSettings))
	mux.HandleFunc("POST /admin/rebuild", s.withAdmin(s.handleRebuild))
	mux.HandleFunc("GET /admin/audit", s.withAdmin(s.handleListAudit))

	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Billiard Tracker API",
		"version": "1.0.0",
	})
}

type createPlayerRequest struct {
	Name    string `json:"name"`
	IsGuest bool   `json:"is_guest"`
}

type playerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsGuest   bool      `json:"is_guest"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if !s.decode(w, r, &req) {
		return
	}
	player, err := s.players.Create(r.Context(), req.Name, req.IsGuest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPlayerResponse(player))
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	includeGuests := r.URL.Query().Get("include_guests") != "false"
	players, err := s.players.List(r.Context(), includeGuests)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]playerResponse, len(players))
	for i := range players {
		out[i] = toPlayerResponse(&players[i])
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	player, err := s.players.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

func (s *Server) handlePlayerSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	summary, err := s.players.Summary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"player":         toPlayerResponse(&summary.Player),
		"recent_matches": toMatchResponses(summary.RecentMatches),
	}
	if summary.Rating != nil {
		resp["rating"] = map[string]any{
			"format":      summary.Rating.Format,
			"rating":      summary.Rating.Rating,
			"games":       summary.Rating.Games,
			"wins":        summary.Rating.Wins,
			"losses":      summary.Rating.Losses,
			"streak":      summary.Rating.Streak,
			"last_played": summary.Rating.LastPlayed,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type createMatchRequest struct {
	Format         string     `json:"format"`
	PlayedAt       *time.Time `json:"played_at,omitempty"`
	BallsRemaining int        `json:"balls_remaining"`
	WinnerSide     string     `json:"winner_side"`
	FoulBlack      bool       `json:"foul_black"`
	Ranked         *bool      `json:"ranked,omitempty"`
	PlayersA       []int64    `json:"players_a"`
	PlayersB       []int64    `json:"players_b"`
}

type matchResponse struct {
	ID             int64     `json:"id"`
	Format         string    `json:"format"`
	PlayedAt       time.Time `json:"played_at"`
	BallsRemaining int       `json:"balls_remaining"`
	WinnerSide     string    `json:"winner_side"`
	FoulBlack      bool      `json:"foul_black"`
	Ranked         bool      `json:"ranked"`
	TeamIDA        *int64    `json:"team_id_a,omitempty"`
	TeamIDB        *int64    `json:"team_id_b,omitempty"`
	PlayersA       []int64   `json:"players_a"`
	PlayersB       []int64   `json:"players_b"`
}

type createMatchResponse struct {
	Match  matchResponse `json:"match"`
	DeltaA *float64      `json:"delta_a,omitempty"`
	DeltaB *float64      `json:"delta_b,omitempty"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	ranked := true
	if req.Ranked != nil {
		ranked = *req.Ranked
	}

	match, deltas, err := s.ratings.CreateMatch(r.Context(), service.CreateMatchInput{
		Format:         domain.Format(req.Format),
		PlayedAt:       req.PlayedAt,
		BallsRemaining: req.BallsRemaining,
		WinnerSide:     domain.Side(req.WinnerSide),
		FoulBlack:      req.FoulBlack,
		Ranked:         ranked,
		PlayersA:       req.PlayersA,
		PlayersB:       req.PlayersB,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := createMatchResponse{Match: toMatchResponse(match)}
	if deltas != nil {
		resp.DeltaA = &deltas.DeltaA
		resp.DeltaB = &deltas.DeltaB
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

type updateMatchRequest struct {
	PlayedAt       *time.Time `json:"played_at,omitempty"`
	BallsRemaining *int       `json:"balls_remaining,omitempty"`
	WinnerSide     *string    `json:"winner_side,omitempty"`
	FoulBlack      *bool      `json:"foul_black,omitempty"`
	Ranked         *bool      `json:"ranked,omitempty"`
}

func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req updateMatchRequest
	if !s.decode(w, r, &req) {
		return
	}

	input := service.UpdateMatchInput{
		PlayedAt:       req.PlayedAt,
		BallsRemaining: req.BallsRemaining,
		FoulBlack:      req.FoulBlack,
		Ranked:         req.Ranked,
	}
	if req.WinnerSide != nil {
		side := domain.Side(*req.WinnerSide)
		input.WinnerSide = &side
	}

	match, err := s.ratings.UpdateMatch(r.Context(), id, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMatchResponse(match))
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.ratings.DeleteMatch(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.stats.Leaderboard(r.Context(), format, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.HistoryFilter{Format: domain.Format(q.Get("format"))}
	filter.PlayerID, _ = strconv.ParseInt(q.Get("player_id"), 10, 64)
	filter.TeamID, _ = strconv.ParseInt(q.Get("team_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	history, err := s.stats.History(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":   history.Total,
		"matches": toMatchResponses(history.Matches),
	})
}

type headToHeadRequest struct {
	Format   string  `json:"format"`
	PlayersA []int64 `json:"players_a"`
	PlayersB []int64 `json:"players_b"`
}

func (s *Server) handleHeadToHead(w http.ResponseWriter, r *http.Request) {
	var req headToHeadRequest
	if !s.decode(w, r, &req) {
		return
	}
	stats, err := s.stats.HeadToHead(r.Context(), domain.Format(req.Format), req.PlayersA, req.PlayersB)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_games":         stats.TotalGames,
		"side_a_wins":         stats.SideAWins,
		"side_b_wins":         stats.SideBWins,
		"last_5_results":      stats.Last5Results,
		"avg_balls_remaining": stats.AvgBallsRemaining,
		"last_match_date":     stats.LastMatchDate,
	})
}

type adminLoginRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	token, expiresIn, err := s.admin.Login(r.Context(), req.PIN)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(expiresIn.Seconds()),
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if !s.decode(w, r, &values) {
		return
	}
	if err := s.admin.UpdateSettings(r.Context(), values); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.admin.ListAudit(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := s.ratings.RebuildAll(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// withAdmin requires a valid admin session token, taken from the
// X-Admin-Token header or the token query parameter.
func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if err := s.admin.Verify(token); err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

func toPlayerResponse(p *domain.Player) playerResponse {
	return playerResponse{ID: p.ID, Name: p.Name, IsGuest: p.IsGuest, CreatedAt: p.CreatedAt}
}

func toMatchResponse(m *domain.Match) matchResponse {
	return matchResponse{
		ID:             m.ID,
		Format:         string(m.Format),
		PlayedAt:       m.PlayedAt,
		BallsRemaining: m.BallsRemaining,
		WinnerSide:     string(m.WinnerSide),
		FoulBlack:      m.FoulBlack,
		Ranked:         m.Ranked,
		TeamIDA:        m.TeamIDA,
		TeamIDB:        m.TeamIDB,
		PlayersA:       m.PlayersA,
		PlayersB:       m.PlayersB,
	}
}

func toMatchResponses(matches []*domain.Match) []matchResponse {
	out := make([]matchResponse, len(matches))
	for i, m := range matches {
		out[i] = toMatchResponse(m)
	}
	return out
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidMatch),
		errors.Is(err, service.ErrInvalidPlayer),
		errors.Is(err, service.ErrTeamSize),
		errors.Is(err, repository.ErrNameTaken):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrPlayerNotFound),
		errors.Is(err, repository.ErrMatchNotFound),
		errors.Is(err, repository.ErrTeamNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrSessionExpired):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

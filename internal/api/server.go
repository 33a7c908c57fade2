// Package api provides the HTTP API for querying arena state and asking
// the decision engine for ad-hoc recommendations.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane), except
// /decide which is public but rate limited.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/strategos/internal/arena"
	"github.com/talgya/strategos/internal/decision"
	"github.com/talgya/strategos/internal/persistence"
)

// Server serves the arena state over HTTP.
type Server struct {
	Sim      *arena.Simulation
	Arbiter  *decision.Arbiter
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for admin POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// Ad-hoc decisions run the full engine stack; cap per-IP throughput.
	decideLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/matches", s.handleMatches)
	mux.HandleFunc("/api/v1/decisions", s.handleDecisions)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	// Decision endpoint (POST, public, rate limited).
	mux.HandleFunc("/api/v1/decide", RateLimitMiddleware(decideLimiter, s.handleDecide))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/reconfigure", s.adminOnly(s.handleReconfigure))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no ARENA_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	round, stats := s.Sim.RoundAndStats()
	writeJSON(w, map[string]any{
		"name":           "Strategos Arena",
		"round":          round,
		"alive_agents":   stats.AliveAgents,
		"total_matches":  stats.TotalMatches,
		"total_draws":    stats.TotalDraws,
		"eliminations":   stats.Eliminations,
		"avg_confidence": stats.AvgConfidence,
		"field_size":     s.Sim.Field.Size,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	roleFilter := r.URL.Query().Get("role")

	type agentSummary struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Role    string  `json:"role"`
		Health  float64 `json:"health"`
		Energy  float64 `json:"energy"`
		Wins    int     `json:"wins"`
		Losses  int     `json:"losses"`
		WinRate float64 `json:"win_rate"`
		Alive   bool    `json:"alive"`
	}

	var result []agentSummary
	for _, a := range s.Sim.AgentSnapshots() {
		if roleFilter != "" && a.Role.String() != roleFilter {
			continue
		}
		result = append(result, agentSummary{
			ID:      a.ID,
			Name:    a.Name,
			Role:    a.Role.String(),
			Health:  a.Stats.Health,
			Energy:  a.Stats.Energy,
			Wins:    a.Wins,
			Losses:  a.Losses,
			WinRate: a.WinRate(),
			Alive:   a.Alive,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing agent id", http.StatusBadRequest)
		return
	}

	agent, ok := s.Sim.AgentSnapshot(parts[4])
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, agent)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	matches, err := s.DB.RecentMatches(queryLimit(r, 50, 500))
	if err != nil {
		slog.Error("matches query failed", "error", err)
		writeJSON(w, []arena.Match{})
		return
	}
	if matches == nil {
		matches = []arena.Match{}
	}
	writeJSON(w, matches)
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	decisions, err := s.DB.RecentDecisions(queryLimit(r, 50, 500))
	if err != nil {
		slog.Error("decisions query failed", "error", err)
		writeJSON(w, []arena.Decision{})
		return
	}
	if decisions == nil {
		decisions = []arena.Decision{}
	}
	writeJSON(w, decisions)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.EventsTail(queryLimit(r, 50, 500)))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	_, stats := s.Sim.RoundAndStats()
	writeJSON(w, stats)
}

// decideRequest is the POST /decide payload: either existing agent ids or
// inline agent specs, plus an optional context.
type decideRequest struct {
	AgentID    string `json:"agent_id,omitempty"`
	OpponentID string `json:"opponent_id,omitempty"`

	Agent    *inlineAgent `json:"agent,omitempty"`
	Opponent *inlineAgent `json:"opponent,omitempty"`

	Context *contextSpec `json:"context,omitempty"`
}

type inlineAgent struct {
	ID    string             `json:"id"`
	Role  string             `json:"role"`
	Stats map[string]float64 `json:"stats,omitempty"`
}

type contextSpec struct {
	Environment      string             `json:"environment,omitempty"`
	ThreatLevel      float64            `json:"threat_level,omitempty"`
	ResourceScarcity float64            `json:"resource_scarcity,omitempty"`
	SocialFactor     float64            `json:"social_factor,omitempty"`
	TimeHorizon      int                `json:"time_horizon,omitempty"`
	Complex          bool               `json:"complex,omitempty"`
	Factors          map[string]float64 `json:"factors,omitempty"`
	EngineWeights    map[string]float64 `json:"engine_weights,omitempty"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	view, err := s.resolveAgent(req.AgentID, req.Agent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var opponent *decision.AgentView
	if req.OpponentID != "" || req.Opponent != nil {
		opp, err := s.resolveAgent(req.OpponentID, req.Opponent)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		opponent = &opp
	}

	ctx, err := buildContext(req.Context)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.Arbiter.Decide(view, opponent, ctx)
	if err != nil {
		slog.Error("decide request failed", "agent", view.ID, "error", err)
		http.Error(w, "decision failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rec)
}

// resolveAgent turns an id or inline spec into an engine view. Ids win when
// both are given.
func (s *Server) resolveAgent(id string, inline *inlineAgent) (decision.AgentView, error) {
	if id != "" {
		a, ok := s.Sim.AgentSnapshot(id)
		if !ok {
			return decision.AgentView{}, fmt.Errorf("agent %q not found", id)
		}
		return a.View(), nil
	}
	if inline == nil {
		return decision.AgentView{}, fmt.Errorf("agent_id or agent required")
	}

	role, err := decision.ParseRole(inline.Role)
	if err != nil {
		return decision.AgentView{}, fmt.Errorf("invalid role %q", inline.Role)
	}
	aid := inline.ID
	if aid == "" {
		aid = "adhoc"
	}
	return decision.AgentView{ID: aid, Role: role, Stats: inline.Stats}, nil
}

func buildContext(spec *contextSpec) (*decision.Context, error) {
	if spec == nil {
		return nil, nil
	}

	env := decision.EnvNone
	switch spec.Environment {
	case "", "none":
	case "battle":
		env = decision.EnvBattle
	case "cooperation":
		env = decision.EnvCooperation
	case "exploration":
		env = decision.EnvExploration
	case "evolution":
		env = decision.EnvEvolution
	default:
		return nil, fmt.Errorf("unknown environment %q", spec.Environment)
	}

	return &decision.Context{
		Environment:      env,
		ThreatLevel:      spec.ThreatLevel,
		ResourceScarcity: spec.ResourceScarcity,
		SocialFactor:     spec.SocialFactor,
		TimeHorizon:      spec.TimeHorizon,
		Complex:          spec.Complex,
		Factors:          spec.Factors,
		EngineWeights:    spec.EngineWeights,
	}, nil
}

func (s *Server) handleReconfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	s.Arbiter.Reconfigure()
	slog.Info("engine caches purged via API")
	writeJSON(w, map[string]string{"status": "reconfigured"})
}

func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	return limit
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

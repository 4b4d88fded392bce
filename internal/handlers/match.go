// internal/handlers/match.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fortyone/internal/game"
)

// CreateMatchRequest is the body for POST /match/create. Config keys
// mirror MatchConfig's json names; absent keys keep their defaults.
type CreateMatchRequest struct {
	Config map[string]interface{} `json:"config,omitempty"`
	Bots   []BotSeatRequest       `json:"bots,omitempty"`
}

// BotSeatRequest seats one bot at creation time. Team 0 lets the match
// balance sides; an empty skill uses the match's configured default.
type BotSeatRequest struct {
	Name  string `json:"name,omitempty"`
	Team  int    `json:"team,omitempty"`
	Skill string `json:"skill,omitempty"`
}

// CreateMatchHandler creates an in-memory match: config overrides
// applied, requested bots seated, intent loop started. Responds with
// the match ID clients use to open the WebSocket.
func CreateMatchHandler(s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad match request payload", http.StatusBadRequest)
			return
		}
		if len(req.Bots) > 3 {
			http.Error(w, "at most 3 bot seats; one seat must stay human", http.StatusBadRequest)
			return
		}

		cfg := game.DefaultMatchConfig()
		if err := cfg.Update(req.Config); err != nil {
			http.Error(w, fmt.Sprintf("invalid config: %v", err), http.StatusBadRequest)
			return
		}

		m := s.NewMatch(cfg)
		for i, b := range req.Bots {
			name := b.Name
			if name == "" {
				name = fmt.Sprintf("bot-%d", i+1)
			}
			skill := b.Skill
			if skill == "" {
				skill = cfg.BotSkill
			}
			if err := m.JoinBot(name, b.Team, skill); err != nil {
				s.Store.DeleteMatch(m.ID)
				m.Stop()
				http.Error(w, fmt.Sprintf("cannot seat bot %s: %v", name, err), http.StatusBadRequest)
				return
			}
		}

		s.Logger.Infof("Created match %s (bots=%d, target=%d)", m.ID, len(req.Bots), cfg.TargetScore)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"match_id": m.ID,
			"config":   cfg,
		})
	}
}

// MatchSummary is one row of the match list.
type MatchSummary struct {
	MatchID   string     `json:"match_id"`
	Phase     game.Phase `json:"phase"`
	Players   []string   `json:"players"`
	Bots      int        `json:"bots"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListMatchesHandler returns every registered match. Each match is
// interrogated through its own loop, so the listing never races live
// play.
func ListMatchesHandler(s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out []MatchSummary
		for _, m := range s.Store.ListMatches() {
			snap, err := m.StateFor("")
			if err != nil {
				continue // torn down between listing and asking
			}
			sum := MatchSummary{
				MatchID:   snap.MatchID,
				Phase:     snap.Phase,
				CreatedAt: m.CreatedAt,
			}
			for _, seat := range snap.Seats {
				sum.Players = append(sum.Players, seat.Name)
				if seat.IsBot {
					sum.Bots++
				}
			}
			out = append(out, sum)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

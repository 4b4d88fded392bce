// internal/game/facts.go
package game

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"fortyone/internal/cache"
)

// publishRoundFact queues the finished round for the historian. Fire
// and forget; persistence never blocks match flow.
func (m *Match) publishRoundFact(rec RoundRecord) {
	if cache.Rdb == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("Match %s: failed to marshal round fact: %v", m.ID, err)
		return
	}
	fact := cache.MatchFactRecord{
		MatchID:   m.ID.String(),
		Kind:      cache.FactRoundResult,
		Round:     rec.Round,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.PublishMatchFact(ctx, fact); err != nil {
			log.Printf("Match %s: failed to publish round fact: %v", m.ID, err)
		}
	}()
}

// publishMatchFact queues the final match result for the historian.
func (m *Match) publishMatchFact(winner int) {
	if cache.Rdb == nil {
		return
	}
	players := make([]map[string]interface{}, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, map[string]interface{}{
			"name":   p.Name,
			"team":   p.Team,
			"seat":   p.Seat,
			"is_bot": p.IsBot,
		})
	}
	payload, err := json.Marshal(map[string]interface{}{
		"winner_team": winner,
		"totals":      m.scores,
		"rounds":      len(m.history),
		"players":     players,
		"created_at":  m.CreatedAt,
	})
	if err != nil {
		log.Printf("Match %s: failed to marshal match fact: %v", m.ID, err)
		return
	}
	fact := cache.MatchFactRecord{
		MatchID:   m.ID.String(),
		Kind:      cache.FactMatchResult,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.PublishMatchFact(ctx, fact); err != nil {
			log.Printf("Match %s: failed to publish match fact: %v", m.ID, err)
		}
	}()
}

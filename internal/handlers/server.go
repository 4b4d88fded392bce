// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fortyone/internal/game"
)

// MatchServer owns the live match registry and the transport state the
// engine itself never sees: one connection table per match, keyed by
// player name. The engine talks to clients only through the broadcast
// callbacks wired here.
type MatchServer struct {
	Logger *logrus.Logger
	Store  *game.MatchStore

	mu      sync.Mutex
	clients map[uuid.UUID]map[string]*websocket.Conn
}

func NewMatchServer(logger *logrus.Logger) *MatchServer {
	return &MatchServer{
		Logger:  logger,
		Store:   game.NewMatchStore(),
		clients: make(map[uuid.UUID]map[string]*websocket.Conn),
	}
}

// registerConn binds a player's connection for a match, replacing any
// previous one (a reconnect supersedes the dead socket).
func (s *MatchServer) registerConn(matchID uuid.UUID, player string, c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.clients[matchID]
	if !ok {
		table = make(map[string]*websocket.Conn)
		s.clients[matchID] = table
	}
	table[player] = c
}

// unregisterConn removes a player's connection, but only if the given
// connection is still the registered one. A reconnect that already
// replaced it stays bound.
func (s *MatchServer) unregisterConn(matchID uuid.UUID, player string, c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if table, ok := s.clients[matchID]; ok {
		if cur, ok := table[player]; ok && cur == c {
			delete(table, player)
		}
	}
}

// connsFor snapshots the connection table for one match.
func (s *MatchServer) connsFor(matchID uuid.UUID) map[string]*websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*websocket.Conn, len(s.clients[matchID]))
	for name, c := range s.clients[matchID] {
		out[name] = c
	}
	return out
}

func (s *MatchServer) connFor(matchID uuid.UUID, player string) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[matchID][player]
}

// dropMatch closes every connection for a match and forgets the table.
func (s *MatchServer) dropMatch(matchID uuid.UUID) {
	s.mu.Lock()
	table := s.clients[matchID]
	delete(s.clients, matchID)
	s.mu.Unlock()
	for _, c := range table {
		c.Close(websocket.StatusCode(MatchTerminatedError), "match terminated")
	}
}

// NewMatch builds a match with its transport callbacks wired, registers
// it, and starts its loop. Seat bots afterwards with JoinBot.
func (s *MatchServer) NewMatch(cfg game.MatchConfig) *game.Match {
	m := game.NewMatch(cfg)
	m.BroadcastFn = s.createBroadcastFunc(m)
	m.BroadcastToPlayerFn = s.createBroadcastToPlayerFunc(m)
	m.OnMatchEnd = func(matchID uuid.UUID, winnerTeam int, totals [2]int) {
		// The match stays registered: the table may still vote a rematch.
		s.Logger.Infof("Match %s finished, team %d wins %v", matchID, winnerTeam, totals)
	}
	m.OnTerminated = func(matchID uuid.UUID) {
		s.Logger.Infof("Match %s terminated, dropping from registry", matchID)
		s.Store.DeleteMatch(matchID)
		// Let the final broadcast flush before the sockets go away.
		go func() {
			time.Sleep(1 * time.Second)
			s.dropMatch(matchID)
		}()
	}
	s.Store.AddMatch(m)
	m.Start()
	return m
}

// createBroadcastFunc returns a function suitable for Match.BroadcastFn.
// It marshals the event once and sends it asynchronously to every
// connected client of the match.
func (s *MatchServer) createBroadcastFunc(m *game.Match) func(ev game.MatchEvent) {
	return func(ev game.MatchEvent) {
		// Called from the match loop; grab the table and get off its
		// goroutine before any network write.
		conns := s.connsFor(m.ID)
		if len(conns) == 0 {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			s.Logger.Errorf("Failed to marshal broadcast event (%s) for match %s: %v", ev.Type, m.ID, err)
			return
		}

		go func(conns map[string]*websocket.Conn, data []byte, matchID uuid.UUID) {
			for name, c := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				err := c.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.Logger.Warnf("Failed to write broadcast message to player %s in match %s: %v", name, matchID, err)
				}
			}
		}(conns, msgBytes, m.ID)
	}
}

// createBroadcastToPlayerFunc returns a function suitable for
// Match.BroadcastToPlayerFn. Snapshots and other private frames go
// through here, so one player's hand never rides a shared payload.
func (s *MatchServer) createBroadcastToPlayerFunc(m *game.Match) func(player string, ev game.MatchEvent) {
	return func(player string, ev game.MatchEvent) {
		c := s.connFor(m.ID, player)
		if c == nil {
			return
		}

		msgBytes, err := json.Marshal(ev)
		if err != nil {
			s.Logger.Errorf("Failed to marshal private event (%s) for player %s in match %s: %v", ev.Type, player, m.ID, err)
			return
		}

		go func(conn *websocket.Conn, data []byte) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				s.Logger.Warnf("Failed to write private message to player %s in match %s: %v", player, m.ID, err)
			}
		}(c, msgBytes)
	}
}

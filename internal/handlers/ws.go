// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fortyone/internal/auth"
	"fortyone/internal/game"
	"fortyone/internal/middleware"
	"fortyone/internal/models"
)

// MatchMessage is one incoming client frame. The first frame on a new
// connection must be join_match or reconnect_to_match; after that the
// client sends actions and pings.
type MatchMessage struct {
	Type  string       `json:"type"`
	Name  string       `json:"name,omitempty"`
	Team  int          `json:"team,omitempty"`
	Token string       `json:"token,omitempty"`
	Bet   *models.Bet  `json:"bet,omitempty"`
	Card  *models.Card `json:"card,omitempty"`
}

// MatchWSHandler upgrades the HTTP connection to WebSocket for one
// match instance, runs the join/reconnect handshake, and then pumps
// client actions into the match loop until the socket dies.
func MatchWSHandler(logger *logrus.Logger, s *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchIDStr := chi.URLParam(r, "id")
		matchID, err := uuid.Parse(matchIDStr)
		if err != nil {
			http.Error(w, "Invalid match id format", http.StatusBadRequest)
			return
		}
		m, ok := s.Store.GetMatch(matchID)
		if !ok {
			http.Error(w, "Match not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"fortyone"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for match %s: %v", matchID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "fortyone" {
			logger.Warnf("Client for match %s connected with invalid subprotocol: %s", matchID, c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'fortyone' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		player, err := handshake(ctx, c, s, m)
		if err != nil {
			logger.Warnf("Handshake failed for match %s: %v", matchID, err)
			return // handshake closed the socket with a reason already
		}
		logger.Infof("Player %s bound to match %s from %s", player, matchID, r.RemoteAddr)

		readMatchMessages(ctx, c, m, player, logger)

		logger.Infof("Player %s read loop exited for match %s.", player, matchID)
		s.unregisterConn(matchID, player, c)
		if err := m.ConnLost(player); err != nil && err != game.ErrMatchOver {
			logger.Warnf("Disconnect handling for %s in match %s: %v", player, matchID, err)
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// handshake binds the connection to a seat: join_match claims a fresh
// one and issues the reconnect token, reconnect_to_match proves an
// existing one. The connection is registered before the engine hears
// about the player, so no event can outrun the socket.
func handshake(ctx context.Context, c *websocket.Conn, s *MatchServer, m *game.Match) (string, error) {
	readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, data, err := c.Read(readCtx)
	if err != nil {
		return "", fmt.Errorf("reading handshake frame: %w", err)
	}

	var msg MatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sendWsError(ctx, c, "Invalid JSON format.")
		c.Close(websocket.StatusPolicyViolation, "Malformed handshake.")
		return "", fmt.Errorf("malformed handshake: %w", err)
	}

	switch msg.Type {
	case "join_match":
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			sendWsError(ctx, c, "A name is required to join.")
			c.Close(websocket.StatusCode(JoinRejectedError), "name required")
			return "", fmt.Errorf("join without a name")
		}
		s.registerConn(m.ID, name, c)
		if err := m.Join(name, msg.Team); err != nil {
			s.unregisterConn(m.ID, name, c)
			sendRejection(ctx, c, err)
			c.Close(websocket.StatusCode(JoinRejectedError), game.ReasonCode(err))
			return "", fmt.Errorf("join refused: %w", err)
		}
		token, err := auth.CreateMatchToken(name, m.ID.String())
		if err != nil {
			// The seat is taken either way; the client just cannot
			// reconnect later.
			log.Printf("Failed to create match token for %s in match %s: %v", name, m.ID, err)
		}
		sendWsMessage(ctx, c, game.MatchEvent{
			Type:   game.EventSessionIssued,
			Player: name,
			Payload: map[string]interface{}{
				"match_id": m.ID.String(),
				"token":    token,
			},
		})
		return name, nil

	case "reconnect_to_match":
		player, mid, err := auth.AuthenticateMatchToken(msg.Token)
		if err != nil || mid != m.ID.String() {
			sendRejection(ctx, c, game.ErrBadCredential)
			c.Close(websocket.StatusCode(InvalidAuthTokenError), game.ReasonCode(game.ErrBadCredential))
			return "", fmt.Errorf("reconnect token rejected")
		}
		s.registerConn(m.ID, player, c)
		if err := m.Resume(player); err != nil {
			s.unregisterConn(m.ID, player, c)
			sendRejection(ctx, c, err)
			c.Close(websocket.StatusCode(InvalidAuthTokenError), game.ReasonCode(err))
			return "", fmt.Errorf("resume refused: %w", err)
		}
		return player, nil

	default:
		sendWsError(ctx, c, "First message must be join_match or reconnect_to_match.")
		c.Close(websocket.StatusPolicyViolation, "Handshake required.")
		return "", fmt.Errorf("unexpected first message type %q", msg.Type)
	}
}

// readMatchMessages pumps frames from one client into the match loop.
// Rejections go back on this socket only; accepted actions surface as
// broadcast events. Exits on socket error, closure, or cancellation.
func readMatchMessages(ctx context.Context, c *websocket.Conn, m *game.Match, player string, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in match %s.", player, m.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s in match %s.", player, m.ID)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in match %s: %v (Status: %d)", player, m.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s in match %s. Ignoring.", msgType, player, m.ID)
			continue
		}

		var msg MatchMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received from player %s in match %s: %v. Data: %s", player, m.ID, err, string(data))
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received %q from player %s in match %s.", msg.Type, player, m.ID)

		switch msg.Type {
		case "select_team":
			submitAction(ctx, c, m, player, models.Action{Type: models.ActionSelectTeam, Team: msg.Team}, logger)
		case "place_bet":
			submitAction(ctx, c, m, player, models.Action{Type: models.ActionPlaceBet, Bet: msg.Bet}, logger)
		case "play_card":
			submitAction(ctx, c, m, player, models.Action{Type: models.ActionPlayCard, Card: msg.Card}, logger)
		case "ready_next_round":
			submitAction(ctx, c, m, player, models.Action{Type: models.ActionReady}, logger)
		case "vote_rematch":
			submitAction(ctx, c, m, player, models.Action{Type: models.ActionRematch}, logger)

		case "request_state":
			snap, err := m.StateFor(player)
			if err != nil {
				sendRejection(ctx, c, err)
				continue
			}
			sendWsMessage(ctx, c, game.MatchEvent{Type: game.EventSnapshot, State: &snap})

		case "leave_match":
			logger.Infof("Player %s leaving match %s.", player, m.ID)
			if err := m.Leave(player); err != nil && err != game.ErrMatchOver {
				logger.Warnf("Leave handling for %s in match %s: %v", player, m.ID, err)
			}
			c.Close(websocket.StatusNormalClosure, "left match")
			return

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown message type '%s' from player %s in match %s.", msg.Type, player, m.ID)
			sendWsError(ctx, c, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			logger.Infof("Context canceled after processing message for player %s in match %s.", player, m.ID)
			return
		default:
		}
	}
}

// submitAction forwards one action to the match loop and reports a
// rejection back to the submitting client.
func submitAction(ctx context.Context, c *websocket.Conn, m *game.Match, player string, act models.Action, logger *logrus.Logger) {
	if err := m.SubmitAction(player, act); err != nil {
		logger.Debugf("Action %s from %s rejected: %v", act.Type, player, err)
		sendRejection(ctx, c, err)
	}
}

// sendRejection sends an action_rejected frame carrying the stable
// reason code plus a human-readable message.
func sendRejection(ctx context.Context, c *websocket.Conn, err error) {
	sendWsMessage(ctx, c, game.MatchEvent{
		Type:   game.EventActionRejected,
		Reason: game.ReasonCode(err),
		Payload: map[string]interface{}{
			"message": err.Error(),
		},
	})
}

// sendWsMessage marshals a message and sends it to the WebSocket client.
// Includes logging for errors and uses a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	// Use a dedicated context with timeout for the write operation.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Write(writeCtx, websocket.MessageText, msgBytes)
	if err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !strings.Contains(err.Error(), "context deadline exceeded") {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		} else if strings.Contains(err.Error(), "context deadline exceeded") {
			log.Printf("Timeout writing WebSocket message: %v", err)
		}
		// Let the read loop handle connection closure detection.
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}

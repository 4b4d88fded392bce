// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the match handlers. These give
// clients more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Reconnect token was invalid, expired, or for another match.
	JoinRejectedError     = 3002 // Join refused: match full, name taken, or team full.
	MatchTerminatedError  = 3003 // Match was torn down server-side.
)

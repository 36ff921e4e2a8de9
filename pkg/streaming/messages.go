package streaming

import (
	"encoding/json"

	"github.com/firereach/ladderreach/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession    = "start_session"
	TypeEndSession      = "end_session"
	TypeAddStatistic    = "add_statistic"
	TypeClearStatistics = "clear_statistics"
	TypeAnalysisResult  = "analysis_result"
	TypeAddGraphics     = "add_graphics"
	TypeRemoveGraphics  = "remove_graphics"
	TypeEvent           = "event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces the session that following messages belong to.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// ClearStatisticsPayload drops every statistic of a session.
type ClearStatisticsPayload struct {
	SessionID string `json:"sessionId"`
}

// AddGraphicsPayload carries graphics to draw.
type AddGraphicsPayload struct {
	Graphics []core.Graphic `json:"graphics"`
}

// RemoveGraphicsPayload names the style roles to clear.
type RemoveGraphicsPayload struct {
	Roles []core.StyleRole `json:"roles"`
}

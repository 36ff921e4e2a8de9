package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firereach/ladderreach/pkg/core"
	"github.com/firereach/ladderreach/pkg/streaming"
)

type (
	Envelope   = streaming.Envelope
	AckMessage = streaming.AckMessage
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams session data to a renderer over WebSocket. Besides
// storage it is a graphics sink, so a remote scene can draw the analysis
// output, and it forwards engine events.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(ctx context.Context, msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()
	return b.conn.sendAndWait(ctx, data, msgType)
}

// StartSession announces the session and waits for the server ack.
func (b *Backend) StartSession(session *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: session})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	return b.conn.sendAndWait(ctx, data, streaming.TypeStartSession)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	err := b.sendEnvelopeAndWait(context.Background(), streaming.TypeEndSession, nil)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) AddStatistic(_ context.Context, stat *core.VisibilityStatistic) error {
	return b.sendEnvelope(streaming.TypeAddStatistic, stat)
}

// ClearStatistics waits for the ack so the remote heatmap is empty before
// new statistics arrive.
func (b *Backend) ClearStatistics(ctx context.Context, sessionID string) error {
	return b.sendEnvelopeAndWait(ctx, streaming.TypeClearStatistics, streaming.ClearStatisticsPayload{SessionID: sessionID})
}

func (b *Backend) RecordResult(_ context.Context, result *core.AnalysisResult) error {
	return b.sendEnvelope(streaming.TypeAnalysisResult, result)
}

// Add draws graphics on the remote scene.
func (b *Backend) Add(_ context.Context, graphics ...core.Graphic) error {
	if len(graphics) == 0 {
		return nil
	}
	return b.sendEnvelope(streaming.TypeAddGraphics, streaming.AddGraphicsPayload{Graphics: graphics})
}

// RemoveAll clears every remote graphic with one of roles.
func (b *Backend) RemoveAll(_ context.Context, roles ...core.StyleRole) error {
	if len(roles) == 0 {
		return nil
	}
	return b.sendEnvelope(streaming.TypeRemoveGraphics, streaming.RemoveGraphicsPayload{Roles: roles})
}

// PublishEvent forwards an engine event.
func (b *Backend) PublishEvent(ev core.Event) error {
	return b.sendEnvelope(streaming.TypeEvent, ev)
}

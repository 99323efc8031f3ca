package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// WebSocketReporter pushes progress events as JSON frames to a websocket
// endpoint, typically the UI-facing progress collaborator. Writes happen
// inline with execution; a failed write logs and disables the reporter
// rather than failing the session.
type WebSocketReporter struct {
	conn    *websocket.Conn
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.Mutex
	broken  bool
}

// DialProgressEndpoint connects to a websocket progress endpoint.
func DialProgressEndpoint(ctx context.Context, url string, logger *zap.Logger) (*WebSocketReporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial progress endpoint: %w", err)
	}
	return &WebSocketReporter{
		conn:    conn,
		timeout: 5 * time.Second,
		logger:  logger.With(zap.String("component", "ws_progress")),
	}, nil
}

func (r *WebSocketReporter) Emit(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.broken {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode progress event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.conn.Write(ctx, websocket.MessageText, data); err != nil {
		r.logger.Warn("progress endpoint write failed, disabling reporter", zap.Error(err))
		r.broken = true
	}
}

// Close closes the websocket connection.
func (r *WebSocketReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.Close(websocket.StatusNormalClosure, "done")
}

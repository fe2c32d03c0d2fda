package inspect

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/groupwire/pkg/metrics"
	"github.com/vango-dev/groupwire/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const wsWriteTimeout = 10 * time.Second

// wsResult is the reply to one WebSocket frame. Exactly one of Message and
// Error is set.
type wsResult struct {
	Message *Description   `json:"message,omitempty"`
	Error   *errorResponse `json:"error,omitempty"`
}

// handleWebSocket decodes each binary WebSocket message as one protocol
// frame whose type byte is the message type, and replies with a JSON text
// message per frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.readLimit)

	remote := r.RemoteAddr
	s.logger.Info("websocket connected", "remote", remote)
	frames := 0
	defer func() {
		s.logger.Info("websocket closed", "remote", remote, "frames", frames)
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		frames++

		result := s.decodeFrame(r, kind, msg)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(result); err != nil {
			s.logger.Warn("websocket write error", "error", err)
			return
		}
	}
}

func (s *Server) decodeFrame(r *http.Request, kind int, msg []byte) wsResult {
	_, span := s.tracer.Start(r.Context(), "groupwire.ws.frame",
		trace.WithAttributes(attribute.Int("groupwire.size", len(msg))))

	var err error
	defer func() { endSpan(span, err) }()

	if kind != websocket.BinaryMessage {
		err = ErrBadRequest
		return wsResult{Error: &errorResponse{Error: "inspect: frames must be binary", Class: "malformed"}}
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		return wsResult{Error: &errorResponse{Error: err.Error(), Class: metrics.Classify(err)}}
	}
	m, err := s.codec.DecodeFrame(f)
	if err != nil {
		return wsResult{Error: &errorResponse{Error: err.Error(), Class: metrics.Classify(err)}}
	}
	span.SetAttributes(attribute.String("groupwire.type", m.Type().String()))
	desc := Describe(m)
	return wsResult{Message: &desc}
}

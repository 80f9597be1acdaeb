package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartapi/schema"
)

const streamIdleTimeout = 60 * time.Second

// StreamHandler serves predictions over a websocket. Every text message is
// one request body and gets exactly one reply, in order.
type StreamHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
	timeout  time.Duration
	maxBytes int64
}

type streamReply struct {
	Status int                      `json:"status"`
	Result *schema.PredictionOutput `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Fields []schema.FieldError      `json:"fields,omitempty"`
}

// NewStreamHandler creates a StreamHandler that answers through handler.
func NewStreamHandler(handler *Handler, config ServerConfig) *StreamHandler {
	allowAll := len(config.AllowedOrigins) == 0 || slices.Contains(config.AllowedOrigins, "*")
	return &StreamHandler{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(config.AllowedOrigins, origin)
			},
		},
		timeout:  config.Timeout,
		maxBytes: config.MaxBodyBytes,
	}
}

// ServeHTTP upgrades the connection and replies until the client leaves.
func (s *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := s.handler.logger.With(zap.String("request_id", GetRequestID(r.Context())))
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if s.maxBytes > 0 {
		conn.SetReadLimit(s.maxBytes)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("prediction stream closed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := s.reply(r.Context(), data)
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn("prediction stream write failed", zap.Error(err))
			return
		}
	}
}

func (s *StreamHandler) reply(parent context.Context, data []byte) streamReply {
	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}

	in, err := schema.Parse(data)
	if err == nil {
		var out schema.PredictionOutput
		out, err = s.handler.predictor.Predict(ctx, in)
		if err == nil {
			return streamReply{Status: http.StatusOK, Result: &out}
		}
	}
	status, resp := s.handler.classify(ctx, err)
	return streamReply{Status: status, Error: resp.Error, Fields: resp.Fields}
}

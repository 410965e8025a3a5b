package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ArunBNiah/venue-intel/internal/pipeline"
	"github.com/ArunBNiah/venue-intel/pkg/logger"
)

type WebSocketHandler struct {
	runner *pipeline.Runner
}

func NewWebSocketHandler(runner *pipeline.Runner) *WebSocketHandler {
	return &WebSocketHandler{
		runner: runner,
	}
}

// frameWriter is the outbound side of a connection. Satisfied by
// websocket.Conn.
type frameWriter interface {
	WriteJSON(v interface{}) error
}

// wsSession serialises writes to one connection. Progress events arrive from
// the run goroutine while the read loop may be sending error frames.
type wsSession struct {
	mu   sync.Mutex
	conn frameWriter
}

func (s *wsSession) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// HandleConnection serves one progress-streaming connection. Clients send
// run or refresh commands and receive stage events as the pipeline works
// through a city, then a final result frame. Commands execute off the read
// loop so a client disconnect cancels the in-flight run.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	sess := &wsSession{conn: c}
	inFlight := make(chan struct{}, 1)
	var wg sync.WaitGroup

	defer func() {
		cancel()
		wg.Wait()
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Action  string `json:"action"`
			City    string `json:"city"`
			Profile string `json:"profile"`
			Workers int    `json:"workers"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			// The read fails when the client goes away. Cancelling the
			// connection context aborts any run still in flight.
			cancel()
			logger.Info("WebSocket read loop ended", zap.Error(err))
			break
		}

		if msg.City == "" || msg.Profile == "" {
			h.sendError(sess, "city and profile are required")
			continue
		}

		select {
		case inFlight <- struct{}{}:
		default:
			h.sendError(sess, "a run is already in progress")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-inFlight }()

			switch msg.Action {
			case "run":
				h.streamRun(ctx, sess, msg.City, msg.Profile)
			case "refresh":
				h.streamRefresh(ctx, sess, msg.City, msg.Profile, msg.Workers)
			default:
				h.sendError(sess, "unknown action: "+msg.Action)
			}
		}()
	}
}

func (h *WebSocketHandler) streamRun(ctx context.Context, sess *wsSession, city, profile string) {
	logger.Info("Streaming pipeline run",
		zap.String("city", city),
		zap.String("profile", profile),
	)

	runner := h.runner.WithEvents(func(e pipeline.Event) {
		h.sendEvent(sess, e)
	})

	result, err := runner.Run(ctx, city, profile)
	if err != nil {
		logger.Error("Pipeline run failed", zap.String("city", city), zap.Error(err))
		h.sendError(sess, err.Error())
		return
	}

	h.sendComplete(sess, result)
}

func (h *WebSocketHandler) streamRefresh(ctx context.Context, sess *wsSession, city, profile string, workers int) {
	logger.Info("Streaming pipeline refresh",
		zap.String("city", city),
		zap.String("profile", profile),
	)

	runner := h.runner.WithEvents(func(e pipeline.Event) {
		h.sendEvent(sess, e)
	})

	result, err := runner.RefreshCity(ctx, city, profile, workers)
	if err != nil {
		logger.Error("Pipeline refresh failed", zap.String("city", city), zap.Error(err))
		h.sendError(sess, err.Error())
		return
	}

	h.sendComplete(sess, result)
}

func (h *WebSocketHandler) sendEvent(sess *wsSession, e pipeline.Event) {
	msg := map[string]interface{}{
		"type":    "progress",
		"stage":   e.Stage,
		"city":    e.City,
		"message": e.Message,
		"count":   e.Count,
	}

	if err := sess.writeJSON(msg); err != nil {
		logger.Warn("Failed to send progress event", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendComplete(sess *wsSession, result *pipeline.RunResult) {
	msg := map[string]interface{}{
		"type":   "complete",
		"result": result,
	}

	if err := sess.writeJSON(msg); err != nil {
		logger.Warn("Failed to send completion frame", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(sess *wsSession, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	sess.writeJSON(msg)
}

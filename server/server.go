// Package server exposes the optimizer over HTTP: a health endpoint and a
// websocket endpoint that streams round progress while a task runs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neuraloverlay/apex-go-sdk/apex"
	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/logging"
)

// Config configures the server.
type Config struct {
	Optimizer *apex.Optimizer
	Logger    logging.Logger

	// RunTimeout bounds a single optimization run. Default: 5 minutes.
	RunTimeout time.Duration
}

// Server serves optimization requests over websockets.
type Server struct {
	optimizer  *apex.Optimizer
	logger     logging.Logger
	runTimeout time.Duration
	upgrader   websocket.Upgrader
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Server{
		optimizer:  cfg.Optimizer,
		logger:     logger,
		runTimeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The SDK server is same-origin or behind a trusted proxy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run starts the HTTP server on addr and blocks.
func (s *Server) Run(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Wire messages.

type generateRequest struct {
	Type    string      `json:"type"` // "generate"
	OwnerID string      `json:"owner_id"`
	Task    taskPayload `json:"task"`
}

type taskPayload struct {
	Kind        string   `json:"kind"`
	Brief       string   `json:"brief"`
	Audience    string   `json:"audience,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

type roundFrame struct {
	Type     string  `json:"type"` // "round"
	Round    int     `json:"round"`
	Score    float64 `json:"score"`
	Accepted bool    `json:"accepted"`
}

type resultFrame struct {
	Type    string  `json:"type"` // "result"
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Rounds  int     `json:"rounds"`
}

type errorFrame struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// handleWS serves one client connection: each generate request runs a task
// and streams its rounds back.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		var req generateRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		if req.Type != "generate" {
			s.writeError(conn, "unknown message type: "+req.Type)
			continue
		}
		if req.Task.Brief == "" {
			s.writeError(conn, "task brief is required")
			continue
		}

		s.serveGenerate(r.Context(), conn, &req)
	}
}

func (s *Server) serveGenerate(ctx context.Context, conn *websocket.Conn, req *generateRequest) {
	task := core.NewTask(req.OwnerID, req.Task.Kind, req.Task.Brief)
	task.Audience = req.Task.Audience
	task.Keywords = req.Task.Keywords
	task.Constraints = req.Task.Constraints

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.logger.Info("run started", "task", task.ID, "owner", task.OwnerID, "kind", task.Kind)

	observer := func(attempt *core.Attempt) {
		frame := roundFrame{
			Type:     "round",
			Round:    attempt.Round,
			Score:    attempt.Score,
			Accepted: attempt.Accepted,
		}
		if err := conn.WriteJSON(frame); err != nil {
			s.logger.Warn("round frame write failed", "error", err)
		}
	}

	result, err := s.optimizer.RunWithObserver(runCtx, task, observer)
	if err != nil {
		s.logger.Warn("run failed", "task", task.ID, "error", err)
		s.writeError(conn, err.Error())
		return
	}

	s.logger.Info("run complete", "task", task.ID, "score", result.Score, "rounds", result.Rounds)

	frame := resultFrame{
		Type:    "result",
		Content: result.Content,
		Score:   result.Score,
		Rounds:  result.Rounds,
	}
	if err := conn.WriteJSON(frame); err != nil {
		s.logger.Warn("result frame write failed", "error", err)
	}
}

func (s *Server) writeError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(errorFrame{Type: "error", Error: msg}); err != nil {
		s.logger.Warn("error frame write failed", "error", err)
	}
}

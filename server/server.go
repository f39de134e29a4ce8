// Package server exposes the Twilio webhooks, the outbound call API and the
// media stream websocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mrsingh-rishi/voice-dialogue/call"
	"github.com/mrsingh-rishi/voice-dialogue/config"
)

type callRequest struct {
	To string `json:"to"`
}

type callResponse struct {
	SID     string `json:"sid,omitempty"`
	Message string `json:"message"`
}

// Session is one running dialogue on a media stream.
type Session interface {
	Run(ctx context.Context) error
}

// SessionFactory builds the session for a freshly upgraded media stream.
type SessionFactory func(conn call.Conn) (Session, error)

type Server struct {
	ctx        context.Context
	app        *fiber.App
	cfg        config.Config
	calls      CallPlacer
	newSession SessionFactory
	logger     *slog.Logger
}

// New builds the fiber app. calls may be nil, in which case POST /call
// answers 503. Sessions run under ctx and end when it is cancelled.
func New(ctx context.Context, cfg config.Config, calls CallPlacer, newSession SessionFactory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctx:        ctx,
		app:        fiber.New(fiber.Config{DisableStartupMessage: true}),
		cfg:        cfg,
		calls:      calls,
		newSession: newSession,
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	addr := ":" + s.cfg.Port
	s.logger.Info("fiber server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	webhooks := []fiber.Handler{}
	if s.cfg.TwilioValidateSignature {
		webhooks = append(webhooks, s.requireTwilioSignature(s.cfg.TwilioAuthToken, s.cfg.BaseURL))
	}
	s.app.Post("/incoming", append(webhooks, s.handleTwiML)...)
	s.app.Get("/twiml", append(webhooks, s.handleTwiML)...)
	s.app.Post("/twiml", append(webhooks, s.handleTwiML)...)

	placeCall := []fiber.Handler{}
	if s.cfg.CallAPIJWTSecret != "" {
		placeCall = append(placeCall, s.requireBearer(s.cfg.CallAPIJWTSecret))
	}
	s.app.Post("/call", append(placeCall, s.handlePlaceCall)...)

	// Middleware to require WebSocket upgrade on /stream
	s.app.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/stream", websocket.New(s.handleStream))
}

// handlePlaceCall kicks off an outbound call and points its TwiML at /twiml.
func (s *Server) handlePlaceCall(c *fiber.Ctx) error {
	if s.calls == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "outbound calling is not configured"})
	}
	var req callRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.To == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "`to` field is required"})
	}

	sid, err := s.calls.PlaceCall(req.To)
	if err != nil {
		s.logger.Error("Twilio error", "to", req.To, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create call"})
	}
	s.logger.Info("outbound call initiated", "call_sid", sid, "to", req.To)
	return c.JSON(callResponse{SID: sid, Message: "call initiated"})
}

// handleTwiML returns the TwiML instructing Twilio to stream to /stream.
func (s *Server) handleTwiML(c *fiber.Ctx) error {
	callSid := c.Query("CallSid")
	if callSid == "" {
		callSid = c.FormValue("CallSid")
	}
	if callSid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "CallSid missing"})
	}

	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Connect>
    <Stream url="%sstream?CallSid=%s"/>
  </Connect>
</Response>`, s.cfg.BaseWSURL, url.QueryEscape(callSid))

	c.Type("xml")
	return c.SendString(xml)
}

func (s *Server) handleStream(ws *websocket.Conn) {
	defer ws.Close()
	logger := s.logger.With("call_sid", ws.Query("CallSid"))
	logger.Info("WebSocket /stream connected")

	session, err := s.newSession(ws)
	if err != nil {
		logger.Error("cannot start call session", "error", err)
		return
	}
	if err := session.Run(s.ctx); err != nil {
		logger.Warn("call session ended with error", "error", err)
	}
}

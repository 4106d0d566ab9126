package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/lanepilot/pkg/hub"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.RequestStop()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"stopping": true})
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	s.camera.Serve(s.ctx, c, nil)
}

// handleStatusWS sends the current status immediately, then periodic updates.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	data, err := json.Marshal(s.status())
	if err != nil {
		s.logger.Warn("status encode failed", "error", err)
		return
	}
	first := hub.Text(data)
	s.state.Serve(s.ctx, c, &first)
}

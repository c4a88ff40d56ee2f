package web

import (
	"encoding/base64"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/camframe/pkg/camera"
)

// Reasons returned to clients.
const (
	reasonNotConnected   = "camera not connected"
	reasonNoFrame        = "no frame available"
	reasonFrameFailed    = "frame encoding failed"
	reasonSnapshotFailed = "snapshot failed"
)

// ConnectRequest is the body of POST /api/connect.
type ConnectRequest struct {
	IPAddress  string `json:"ip_address"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	RTSPPort   int    `json:"rtsp_port"`
	StreamPath string `json:"stream_path"`
}

// ConnectResponse is returned by POST /api/connect.
type ConnectResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	CameraInfo *camera.Info `json:"camera_info,omitempty"`
}

// FrameResponse is returned by GET /api/frame.
type FrameResponse struct {
	Success   bool    `json:"success"`
	Frame     string  `json:"frame,omitempty"`
	Timestamp float64 `json:"timestamp"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "camframe camera API",
		"status":  "running",
	})
}

// handleHealth includes the loop counters of the active camera, or null.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	st := s.svc.Status()
	var stats *camera.Stats
	if v, ok := s.svc.Stats(); ok {
		stats = &v
	}
	return c.JSON(fiber.Map{
		"status":           "healthy",
		"camera_connected": st.Connected,
		"camera_streaming": st.Streaming,
		"camera_stats":     stats,
		"timestamp":        s.timestamp(),
	})
}

// handleConnect replaces the active camera. A camera that cannot be opened
// is reported with success=false and a 200, like any other connect result.
func (s *Server) handleConnect(c *fiber.Ctx) error {
	var req ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ConnectResponse{
			Message: "invalid request body: " + err.Error(),
		})
	}
	if req.IPAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ConnectResponse{
			Message: "ip_address is required",
		})
	}

	ep := camera.NewEndpoint(req.IPAddress, req.Username, req.Password, req.RTSPPort, req.StreamPath)
	info, err := s.svc.Connect(ep)
	if err != nil {
		s.log.Warn("web: connect failed", "endpoint", ep, "error", err)
		msg := "camera connection failed"
		if errors.Is(err, camera.ErrInvalidEndpoint) {
			msg = err.Error()
		}
		return c.JSON(ConnectResponse{Message: msg})
	}

	s.log.Info("web: camera connected", "endpoint", ep)
	return c.JSON(ConnectResponse{
		Success:    true,
		Message:    "camera connected",
		CameraInfo: &info,
	})
}

func (s *Server) handleDisconnect(c *fiber.Ctx) error {
	s.svc.Disconnect()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "camera disconnected",
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.svc.Status())
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	data, err := s.svc.Frame()
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, camera.ErrNotConnected):
			reason = reasonNotConnected
		case errors.Is(err, camera.ErrNoFrameYet):
			reason = reasonNoFrame
		default:
			s.log.Error("web: frame failed", "error", err)
			reason = reasonFrameFailed
		}
		return c.JSON(FrameResponse{Error: reason, Timestamp: s.timestamp()})
	}
	return c.JSON(FrameResponse{
		Success:   true,
		Frame:     base64.StdEncoding.EncodeToString(data),
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	path, err := s.svc.Snapshot()
	switch {
	case errors.Is(err, camera.ErrNotConnected):
		return fiber.NewError(fiber.StatusBadRequest, reasonNotConnected)
	case err != nil:
		s.log.Warn("web: snapshot failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, reasonSnapshotFailed)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"filename": path,
	})
}

func (s *Server) handleInfo(c *fiber.Ctx) error {
	info, err := s.svc.Info()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, reasonNotConnected)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"info":    info,
	})
}

package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/mcp/jsonrpc"
	"github.com/slighter12/unreal-mcp-go/transport/shared"
)

const maxJSONRPCBodyBytes = 1 << 20

const (
	headerSessionID       = "MCP-Session-Id"
	headerProtocolVersion = "MCP-Protocol-Version"
)

var supportedProtocolVersions = map[string]struct{}{
	"2024-11-05": {},
	"2025-03-26": {},
	"2025-06-18": {},
}

func RegisterRoutes(e *echo.Echo, s *Server) {
	e.GET("/", s.handleHTTPInfo)
	e.POST("/mcp", s.handleMCPPost)
	e.DELETE("/mcp", s.handleMCPDelete)
	e.OPTIONS("/mcp", s.handleOptions)
}

func (s *Server) handleHTTPInfo(c echo.Context) error {
	logger.Debug("HTTP info requested", "remote_addr", c.RealIP())
	info := map[string]any{
		"version": "0.1.0",
		"type":    "unreal-mcp",
		"capabilities": map[string]any{
			"stdio": true,
			"http":  true,
		},
		"mcp_endpoint": "/mcp",
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleOptions(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleMCPPost(c echo.Context) error {
	limitedBody := http.MaxBytesReader(c.Response(), c.Request().Body, maxJSONRPCBodyBytes)
	defer limitedBody.Close()

	body, err := io.ReadAll(limitedBody)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrParseError), "Parse error", nil))
	}

	requests, prebuiltResponses, err := shared.ParseJSONRPCFrame(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrParseError), "Parse error", nil))
	}
	if len(requests) == 0 {
		return c.JSON(http.StatusBadRequest, prebuiltResponses[0])
	}
	request := requests[0]

	requestedVersion := strings.TrimSpace(c.Request().Header.Get(headerProtocolVersion))
	if requestedVersion != "" && !isSupportedProtocolVersion(requestedVersion) {
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Unsupported MCP-Protocol-Version header", nil))
	}

	sessionID := c.Request().Header.Get(headerSessionID)
	if request.Method == "initialize" {
		if sessionID == "" {
			sessionID, err = generateSessionID()
			if err != nil {
				logger.Error("Failed to generate session ID", "error", err)
				return c.JSON(http.StatusInternalServerError, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInternalError), "Internal error", nil))
			}
		}
		s.sessionManager.CreateSession(sessionID)
	} else {
		if sessionID == "" {
			return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Missing MCP-Session-Id header", nil))
		}
		if !s.sessionManager.TouchSession(sessionID) {
			return c.JSON(http.StatusNotFound, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Unknown MCP session", nil))
		}
	}

	logger.Debug("HTTP request received", "method", request.Method, "id", request.ID)
	response := s.handleMessage(request, sessionID)

	if sessionID != "" {
		c.Response().Header().Set(headerSessionID, sessionID)
	}
	if response == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleMCPDelete(c echo.Context) error {
	sessionID := c.Request().Header.Get(headerSessionID)
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Missing MCP-Session-Id header", nil))
	}
	if !s.sessionManager.HasSession(sessionID) {
		return c.JSON(http.StatusNotFound, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Unknown MCP session", nil))
	}
	s.sessionManager.RemoveSession(sessionID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMessage(msg jsonrpc.Request, sessionID string) any {
	switch msg.Method {
	case "initialize":
		return s.handleInit(msg, sessionID)
	case "initialized", "notifications/initialized":
		if msg.ID != nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)
		}
		if sessionID != "" {
			s.sessionManager.MarkInitialized(sessionID)
		}
		return nil
	default:
		return shared.DispatchStandardMethod(msg, s.toolManager, s.readResource)
	}
}

func (s *Server) handleInit(msg jsonrpc.Request, sessionID string) *jsonrpc.Response {
	toolList, err := s.registry.GetServerTools("default")
	if err != nil {
		toolList = s.toolManager.GetTools()
	}

	negotiatedVersion := negotiateProtocolVersion(msg.Params)
	if sessionID != "" {
		s.sessionManager.SetProtocolVersion(sessionID, negotiatedVersion)
	}
	result := map[string]any{
		"type":            string(mcp.TypeInit),
		"version":         "0.1.0",
		"server_id":       "default",
		"tools":           toolList,
		"protocolVersion": negotiatedVersion,
		"capabilities":    shared.ServerCapabilities(),
		"serverInfo": map[string]any{
			"name":    "unreal-mcp-go",
			"version": "0.1.0",
		},
	}
	if sessionID != "" {
		result["sessionId"] = sessionID
	}

	return jsonrpc.NewResponse(msg.ID, result)
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read cryptographic random bytes: %w", err)
	}
	return "session_" + hex.EncodeToString(buf), nil
}

func isSupportedProtocolVersion(version string) bool {
	if version == mcp.ProtocolVersion {
		return true
	}
	_, ok := supportedProtocolVersions[version]
	return ok
}

func negotiateProtocolVersion(paramsRaw json.RawMessage) string {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	preferred := mcp.ProtocolVersion
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return preferred
	}

	if params.ProtocolVersion != "" && isSupportedProtocolVersion(params.ProtocolVersion) {
		return params.ProtocolVersion
	}
	return preferred
}

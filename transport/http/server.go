// Package http serves the MCP protocol over a streamable HTTP endpoint
// built on echo.
package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/slighter12/unreal-mcp-go/config"
	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/tools"
)

type Server struct {
	registry       *mcp.Registry
	toolManager    *tools.Manager
	sessionManager *SessionManager
	config         *config.Config
	readResource   func(string) (any, error)
	echo           *echo.Echo
	routesReady    bool
}

// NewServer creates an HTTP server over an already-populated tool manager.
func NewServer(cfg *config.Config, toolManager *tools.Manager, readResource func(string) (any, error)) *Server {
	s := &Server{
		registry:       mcp.NewRegistry(),
		toolManager:    toolManager,
		sessionManager: NewSessionManager(),
		config:         cfg,
		readResource:   readResource,
		echo:           echo.New(),
	}
	if err := s.registry.RegisterServer("default", toolManager.GetTools()); err != nil {
		logger.Error("Failed to register default server", "error", err)
	}
	_ = s.registry.SetPersistence("default", true)
	return s
}

// Start registers routes and blocks serving HTTP.
func (s *Server) Start() error {
	go s.startCleanupGoroutine()
	s.setupEcho()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	logger.Info("HTTP transport listening", "address", addr)
	return s.echo.Start(addr)
}

func (s *Server) setupEcho() {
	if s.routesReady {
		return
	}
	s.routesReady = true
	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, headerSessionID, headerProtocolVersion},
	}))
	RegisterRoutes(s.echo, s)
}

func (s *Server) startCleanupGoroutine() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.registry.Cleanup(10 * time.Minute)
		s.sessionManager.CleanupSessions(10 * time.Minute)
	}
}

// Echo exposes the underlying router, used by tests with httptest.
func (s *Server) Echo() *echo.Echo {
	s.setupEcho()
	return s.echo
}

func (s *Server) GetToolManager() *tools.Manager {
	return s.toolManager
}

func (s *Server) GetSessionManager() *SessionManager {
	return s.sessionManager
}

package mcp

import (
	"sync"
	"time"
)

// ServerInfo represents information about a registered server
type ServerInfo struct {
	ID         string
	Tools      []Tool
	CreatedAt  time.Time
	LastSeen   time.Time
	Persistent bool
}

// Registry tracks tool-server registrations for the HTTP transport.
type Registry struct {
	servers map[string]*ServerInfo
	mu      sync.RWMutex
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		servers: make(map[string]*ServerInfo),
	}
}

// RegisterServer registers a new server
func (r *Registry) RegisterServer(id string, tools []Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[id]; exists {
		return ErrServerAlreadyRegistered
	}

	r.servers[id] = &ServerInfo{
		ID:        id,
		Tools:     tools,
		CreatedAt: time.Now(),
		LastSeen:  time.Now(),
	}
	return nil
}

// IsServerRegistered checks if a server is registered
func (r *Registry) IsServerRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.servers[id]
	return exists
}

// GetServerTools returns the tools registered for a server
func (r *Registry) GetServerTools(id string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	server, exists := r.servers[id]
	if !exists {
		return nil, ErrServerNotFound
	}
	return server.Tools, nil
}

// UpdateLastSeen updates the last seen timestamp for a server
func (r *Registry) UpdateLastSeen(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	server, exists := r.servers[id]
	if !exists {
		return ErrServerNotFound
	}
	server.LastSeen = time.Now()
	return nil
}

// SetPersistence sets the persistent flag for a server
func (r *Registry) SetPersistence(id string, persistent bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	server, exists := r.servers[id]
	if !exists {
		return ErrServerNotFound
	}
	server.Persistent = persistent
	return nil
}

// Cleanup removes inactive non-persistent servers
func (r *Registry) Cleanup(timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, server := range r.servers {
		if !server.Persistent && now.Sub(server.LastSeen) > timeout {
			delete(r.servers, id)
		}
	}
}

// Errors
var (
	ErrServerAlreadyRegistered = &Error{Code: 400, Message: "server already registered"}
	ErrServerNotFound          = &Error{Code: 404, Message: "server not found"}
)

// Error represents a registry error
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

package http

import (
	"sync"
	"time"
)

// SessionManager manages MCP sessions for the HTTP transport
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Session represents an MCP session
type Session struct {
	ID              string
	Created         time.Time
	LastSeen        time.Time
	Initialized     bool
	ProtocolVersion string
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession creates a new session
func (sm *SessionManager) CreateSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return
	}
	sm.sessions[sessionID] = &Session{
		ID:       sessionID,
		Created:  time.Now(),
		LastSeen: time.Now(),
	}
}

// HasSession reports whether a session exists
func (sm *SessionManager) HasSession(sessionID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, exists := sm.sessions[sessionID]
	return exists
}

// GetSession returns a snapshot of a session's state
func (sm *SessionManager) GetSession(sessionID string) (Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return Session{}, false
	}
	return *session, true
}

// TouchSession refreshes a session's last-seen time
func (sm *SessionManager) TouchSession(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return false
	}
	session.LastSeen = time.Now()
	return true
}

// MarkInitialized records the initialized notification
func (sm *SessionManager) MarkInitialized(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[sessionID]; exists {
		session.Initialized = true
		session.LastSeen = time.Now()
	}
}

// SetProtocolVersion stores the negotiated protocol version
func (sm *SessionManager) SetProtocolVersion(sessionID, version string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[sessionID]; exists {
		session.ProtocolVersion = version
	}
}

// GetProtocolVersion returns the negotiated protocol version
func (sm *SessionManager) GetProtocolVersion(sessionID string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return "", false
	}
	return session.ProtocolVersion, true
}

// RemoveSession removes a session
func (sm *SessionManager) RemoveSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, sessionID)
}

// CleanupSessions removes expired sessions
func (sm *SessionManager) CleanupSessions(timeout time.Duration) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for sessionID, session := range sm.sessions {
		if now.Sub(session.LastSeen) > timeout {
			delete(sm.sessions, sessionID)
		}
	}
}

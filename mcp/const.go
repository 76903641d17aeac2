package mcp

// Protocol version
const (
	ProtocolVersion = "2025-06-18"
)

type MessageType string

// Message protocol types
const (
	TypeInit   MessageType = "init"
	TypeResult MessageType = "result"
)

package jsonrpc

type ErrorCode int

// JSON-RPC 2.0 Error Codes
const (
	ErrParseError     ErrorCode = -32700 // Invalid JSON was received by the server
	ErrInvalidRequest ErrorCode = -32600 // The JSON sent is not a valid Request object
	ErrMethodNotFound ErrorCode = -32601 // The method does not exist / is not available
	ErrInvalidParams  ErrorCode = -32602 // Invalid method parameter(s)
	ErrInternalError  ErrorCode = -32603 // Internal JSON-RPC error

	// Server error codes (-32000 to -32099)
	ErrServerError ErrorCode = -32000
)

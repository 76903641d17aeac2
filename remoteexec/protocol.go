// Package remoteexec implements the Unreal Editor Python remote execution
// protocol: UDP multicast discovery of editor instances and a point-to-point
// TCP command channel for executing Python code inside a verified instance.
package remoteexec

import (
	"encoding/json"
	"fmt"
)

// Protocol constants fixed by the editor's PythonScriptPlugin.
const (
	Magic           = "ue_py"
	ProtocolVersion = 1
)

const bufferSize = 2 * 1024 * 1024

// Message types on the discovery and command channels.
const (
	TypePing            = "ping"
	TypePong            = "pong"
	TypeOpenConnection  = "open_connection"
	TypeCloseConnection = "close_connection"
	TypeCommand         = "command"
	TypeCommandResult   = "command_result"
)

// ExecMode selects how the remote interpreter runs a command.
type ExecMode string

const (
	// ExecuteFile runs the command as a whole file body.
	ExecuteFile ExecMode = "ExecuteFile"
	// ExecuteStatement runs a single logical statement.
	ExecuteStatement ExecMode = "ExecuteStatement"
	// EvaluateStatement evaluates an expression and returns its value.
	EvaluateStatement ExecMode = "EvaluateStatement"
)

// Message is the JSON envelope shared by every protocol message.
type Message struct {
	Version int             `json:"version"`
	Magic   string          `json:"magic"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Dest    string          `json:"dest,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Valid reports whether the envelope carries the expected magic and version.
func (m Message) Valid() bool {
	return m.Magic == Magic && m.Version == ProtocolVersion
}

// PongData is the payload an editor instance attaches to a discovery reply.
type PongData struct {
	ProjectName   string `json:"project_name"`
	EngineVersion string `json:"engine_version"`
}

// OpenConnectionData tells the editor where to dial the command channel.
type OpenConnectionData struct {
	CommandIP   string `json:"command_ip"`
	CommandPort int    `json:"command_port"`
}

// CommandData is the payload of a command message.
type CommandData struct {
	Command    string   `json:"command"`
	Unattended bool     `json:"unattended"`
	ExecMode   ExecMode `json:"exec_mode"`
}

// OutputLine is one captured stdout/stderr entry from the remote interpreter.
type OutputLine struct {
	Type   string `json:"type"`
	Output string `json:"output"`
}

// CommandResultData is the payload of a command_result message.
type CommandResultData struct {
	Success bool         `json:"success"`
	Result  string       `json:"result"`
	Output  []OutputLine `json:"output"`
}

func newMessage(msgType, source, dest string, data any) (Message, error) {
	msg := Message{
		Version: ProtocolVersion,
		Magic:   Magic,
		Type:    msgType,
		Source:  source,
		Dest:    dest,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		msg.Data = raw
	}
	return msg, nil
}

// FlattenOutput concatenates captured output lines into one string, newline
// separated, for callers that scan for textual markers.
func FlattenOutput(lines []OutputLine) string {
	if len(lines) == 0 {
		return ""
	}
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line.Output
	}
	return out
}

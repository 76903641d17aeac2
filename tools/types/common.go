// Package types holds the tool contract and the shared dependencies tools
// execute against.
package types

import (
	"encoding/json"

	"github.com/slighter12/unreal-mcp-go/config"
	"github.com/slighter12/unreal-mcp-go/editor"
	"github.com/slighter12/unreal-mcp-go/executor"
	"github.com/slighter12/unreal-mcp-go/inspector"
	"github.com/slighter12/unreal-mcp-go/mcp"
)

// Tool interface defines the contract for all tools
type Tool interface {
	Name() string
	Description() string
	InputSchema() mcp.InputSchema
	Execute(args json.RawMessage) ([]byte, error)
}

// ToolRegistry interface defines the contract for tool registries
type ToolRegistry interface {
	RegisterTool(tool Tool) error
	GetTool(name string) (Tool, bool)
	ListTools() []Tool
	ExecuteTool(name string, args json.RawMessage) ([]byte, error)
}

// Deps are the long-lived components tools operate on. One set is built at
// server start and shared by every transport; tools never construct their
// own supervisor or pipeline.
type Deps struct {
	Config     *config.Config
	Supervisor *editor.Supervisor
	Core       *executor.Core
	Inspector  *inspector.Inspector
	Pip        *executor.Pip
}

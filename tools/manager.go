// Package tools registers and dispatches the MCP tool set.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/tools/types"
)

var ErrToolNotFound = errors.New("tool not found")

func IsToolNotFound(err error) bool {
	return errors.Is(err, ErrToolNotFound)
}

// Manager implements ToolRegistry interface
type Manager struct {
	tools map[string]types.Tool
	mutex sync.RWMutex
}

// NewManager creates a new tool manager
func NewManager() *Manager {
	return &Manager{
		tools: make(map[string]types.Tool),
	}
}

// RegisterTool registers a new tool
func (m *Manager) RegisterTool(tool types.Tool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if tool == nil {
		return errors.New("tool cannot be nil")
	}

	name := tool.Name()
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	m.tools[name] = tool
	logger.Debug("Tool registered", "name", name)
	return nil
}

// GetTool retrieves a tool by name
func (m *Manager) GetTool(name string) (types.Tool, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	tool, exists := m.tools[name]
	return tool, exists
}

// ListTools returns all registered tools
func (m *Manager) ListTools() []types.Tool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	tools := make([]types.Tool, 0, len(m.tools))
	for _, tool := range m.tools {
		tools = append(tools, tool)
	}
	return tools
}

// ExecuteTool executes a tool by name with the given arguments
func (m *Manager) ExecuteTool(name string, args json.RawMessage) ([]byte, error) {
	tool, exists := m.GetTool(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	logger.Debug("Executing tool", "name", name)
	return tool.Execute(args)
}

// RegisterDefaultTools registers the full tool set against one shared set
// of dependencies.
func (m *Manager) RegisterDefaultTools(deps types.Deps) {
	allTools := GetAllTools(deps)
	for _, tool := range allTools {
		if err := m.RegisterTool(tool); err != nil {
			logger.Error("Failed to register tool", "name", tool.Name(), "error", err)
		}
	}
	logger.Info("Default tools registered", "count", len(allTools))
}

// GetTools returns a list of registered tools with their descriptions and schemas
func (m *Manager) GetTools() []mcp.Tool {
	tools := m.ListTools()
	mcpTools := make([]mcp.Tool, 0, len(tools))

	for _, tool := range tools {
		mcpTools = append(mcpTools, mcp.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	return mcpTools
}

// CallTool calls a registered tool with map arguments and decodes the
// result back into a generic value.
func (m *Manager) CallTool(name string, args map[string]any) (any, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	resultJSON, err := m.ExecuteTool(name, argsJSON)
	if err != nil {
		return nil, err
	}

	var result any
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, err
	}

	return result, nil
}

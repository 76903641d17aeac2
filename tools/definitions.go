package tools

import (
	"github.com/slighter12/unreal-mcp-go/tools/assets"
	"github.com/slighter12/unreal-mcp-go/tools/execution"
	"github.com/slighter12/unreal-mcp-go/tools/lifecycle"
	"github.com/slighter12/unreal-mcp-go/tools/types"
	"github.com/slighter12/unreal-mcp-go/tools/utility"
)

// GetAllTools returns all available tools from all categories
func GetAllTools(deps types.Deps) []types.Tool {
	var all []types.Tool
	all = append(all, lifecycle.GetAllTools(deps)...)
	all = append(all, execution.GetAllTools(deps)...)
	all = append(all, assets.GetAllTools(deps)...)
	all = append(all, utility.GetAllTools(deps)...)
	return all
}

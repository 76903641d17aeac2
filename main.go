package main

import (
	"os"

	"github.com/slighter12/unreal-mcp-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

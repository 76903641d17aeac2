package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/slighter12/unreal-mcp-go/config"
	"github.com/slighter12/unreal-mcp-go/editor"
	"github.com/slighter12/unreal-mcp-go/executor"
	"github.com/slighter12/unreal-mcp-go/inspector"
	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/tools"
	tooltypes "github.com/slighter12/unreal-mcp-go/tools/types"
	"github.com/slighter12/unreal-mcp-go/tracking"
	httptransport "github.com/slighter12/unreal-mcp-go/transport/http"
	"github.com/slighter12/unreal-mcp-go/transport/stdio"
)

var stdioOnly bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&stdioOnly, "stdio", false, "serve only on stdio regardless of configured transports")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cfg *config.Config) error {
	deps := buildDeps(cfg)
	manager := tools.NewManager()
	manager.RegisterDefaultTools(deps)
	readResource := newResourceReader(cfg, deps)

	if stdioOnly {
		return stdio.NewServer(manager, readResource).Start()
	}

	var group errgroup.Group
	started := 0
	for _, transport := range cfg.Transports {
		if !transport.Enabled {
			continue
		}
		switch transport.Type {
		case "stdio":
			started++
			group.Go(func() error {
				return stdio.NewServer(manager, readResource).Start()
			})
		case "http":
			started++
			group.Go(func() error {
				return httptransport.NewServer(cfg, manager, readResource).Start()
			})
		}
	}
	if started == 0 {
		return fmt.Errorf("no enabled transports in configuration")
	}

	logger.Info("MCP server running", "transports", started)
	return group.Wait()
}

// buildDeps wires the long-lived components every tool shares: one
// supervisor, one inspection policy, one execution pipeline.
func buildDeps(cfg *config.Config) tooltypes.Deps {
	supervisor := editor.NewSupervisor(cfg.Editor)

	severity := inspector.SeverityWarning
	if cfg.Inspector.BlockingCallSeverity == "error" {
		severity = inspector.SeverityError
	}
	ins := inspector.New(
		inspector.NewBlockingCallChecker(severity),
		inspector.NewDeprecatedAPIChecker(),
	)

	pip := executor.NewPip()
	core := executor.New(supervisor, ins, pip, executor.Options{
		ProjectRoot:     filepath.Dir(cfg.Editor.ProjectPath),
		Timeout:         time.Duration(cfg.Editor.ExecuteTimeoutSeconds) * time.Second,
		TrackingEnabled: cfg.Tracking.Enabled,
		Tolerances: tracking.Tolerances{
			Position: cfg.Tracking.PositionTolerance,
			Rotation: cfg.Tracking.RotationTolerance,
		},
		MaxAutoInstalls: cfg.Inspector.MaxAutoInstalls,
	})

	return tooltypes.Deps{
		Config:     cfg,
		Supervisor: supervisor,
		Core:       core,
		Inspector:  ins,
		Pip:        pip,
	}
}

func newResourceReader(cfg *config.Config, deps tooltypes.Deps) func(string) (any, error) {
	return func(uri string) (any, error) {
		switch uri {
		case "ue://project/info":
			return map[string]any{
				"name":         deps.Supervisor.ProjectName(),
				"project_path": cfg.Editor.ProjectPath,
				"type":         "unreal",
			}, nil
		case "ue://editor/status":
			return deps.Supervisor.Status(), nil
		case "ue://editor/log":
			return deps.Supervisor.ReadLog(200), nil
		default:
			return nil, fmt.Errorf("unknown resource path: %s", uri)
		}
	}
}

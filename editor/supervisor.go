package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/slighter12/unreal-mcp-go/config"
	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
)

const (
	connectProbeTimeout = 2 * time.Second
	connectPollInterval = 500 * time.Millisecond
	quitCommandTimeout  = 5 * time.Second
)

// ErrNotConnected is returned when an operation needs a live remote
// execution link and none exists.
var ErrNotConnected = errors.New("editor is not connected")

// Supervisor owns the editor process lifecycle: launch, connection
// establishment, status, log access, and shutdown. One supervisor manages at
// most one live session at a time.
type Supervisor struct {
	cfg config.Editor

	mu         sync.Mutex
	session    *Session
	monitor    *Monitor
	lastHealth *HealthEvent
}

// NewSupervisor creates a supervisor for the configured project.
func NewSupervisor(cfg config.Editor) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// ProjectName derives the project name from the configured .uproject path.
func (s *Supervisor) ProjectName() string {
	base := filepath.Base(s.cfg.ProjectPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Supervisor) projectRoot() string {
	return filepath.Dir(s.cfg.ProjectPath)
}

// LaunchResult reports the outcome of a launch attempt.
type LaunchResult struct {
	Success              bool   `json:"success"`
	Message              string `json:"message,omitempty"`
	Error                string `json:"error,omitempty"`
	PID                  int    `json:"pid,omitempty"`
	NodeID               string `json:"node_id,omitempty"`
	LogPath              string `json:"log_file_path,omitempty"`
	ExitCode             int    `json:"exit_code,omitempty"`
	BackgroundConnecting bool   `json:"background_connecting,omitempty"`
}

// Launch starts the editor process and waits for the remote execution link.
// If the connection is not established within the configured wait timeout,
// the launch is reported as still connecting and a background retry loop
// keeps trying until the process exits or a stop is requested.
func (s *Supervisor) Launch() LaunchResult {
	s.mu.Lock()
	if s.session != nil {
		if _, exited := s.session.Poll(); !exited {
			s.mu.Unlock()
			return LaunchResult{Success: false, Error: "Editor is already running"}
		}
		s.session = nil
	}
	s.mu.Unlock()

	if s.cfg.ProjectPath == "" {
		return LaunchResult{Success: false, Error: "No project path configured"}
	}
	editorPath := s.cfg.EditorPath
	if editorPath == "" {
		return LaunchResult{Success: false, Error: "Could not find Unreal Editor executable"}
	}

	port, err := remoteexec.FindAvailablePort(s.cfg.PortRangeStart, s.cfg.PortRangeEnd)
	if err != nil {
		return LaunchResult{Success: false, Error: fmt.Sprintf("Failed to allocate multicast port: %v", err)}
	}

	logPath := s.logFilePath()
	_ = os.MkdirAll(filepath.Dir(logPath), 0o755)

	args := []string{
		s.cfg.ProjectPath,
		"-ABSLOG=" + logPath,
		fmt.Sprintf("-ini:Engine:[/Script/PythonScriptPlugin.PythonScriptPluginSettings]:"+
			"RemoteExecutionMulticastGroupEndpoint=%s:%d", s.cfg.MulticastGroupIP, port),
		"-AutoDeclinePackageRecovery",
		"-NoLiveCoding",
	}
	if s.cfg.Unattended {
		args = append(args, "-unattended")
	}

	cmd := exec.Command(editorPath, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	logger.Info("Launching editor",
		"editor", editorPath,
		"project", s.cfg.ProjectPath,
		"port", port,
		"log", logPath)

	if err := cmd.Start(); err != nil {
		return LaunchResult{Success: false, Error: fmt.Sprintf("Failed to launch editor: %v", err)}
	}

	session := newSession(cmd, logPath, port)
	s.mu.Lock()
	s.session = session
	s.lastHealth = nil
	s.mu.Unlock()
	logger.Info("Editor process started", "pid", session.PID())

	result := s.waitForConnection(session)
	if result.Success || result.BackgroundConnecting {
		s.startMonitor(session)
	}
	return result
}

func (s *Supervisor) logFilePath() string {
	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("ue-mcp-%s-%s.log", s.ProjectName(), timestamp)
	return filepath.Join(s.projectRoot(), "Saved", "Logs", name)
}

func (s *Supervisor) newLink(session *Session) *remoteexec.Client {
	return remoteexec.NewClient(remoteexec.Options{
		MulticastGroupIP:   s.cfg.MulticastGroupIP,
		MulticastGroupPort: session.Port(),
		ProjectName:        s.ProjectName(),
		ExpectedPID:        session.PID(),
		RequireUnique:      s.cfg.RequireUniqueDiscovery,
	})
}

// waitForConnection polls for the editor's remote execution endpoint until
// the wait timeout, then hands off to a background retry loop.
func (s *Supervisor) waitForConnection(session *Session) LaunchResult {
	waitTimeout := time.Duration(s.cfg.LaunchWaitTimeoutSeconds) * time.Second
	deadline := time.Now().Add(waitTimeout)

	logger.Info("Waiting for editor connection", "timeout", waitTimeout)

	for time.Now().Before(deadline) {
		if code, exited := session.Poll(); exited {
			info := ClassifyExitWithLog(code, session.LogPath(), int64(s.cfg.CrashLogTailBytes))
			logger.Error("Editor process exited before connecting",
				"exit_code", code, "exit_type", info.Type)
			return LaunchResult{
				Success:  false,
				Error:    info.Description,
				ExitCode: code,
				LogPath:  session.LogPath(),
			}
		}

		link := s.newLink(session)
		if link.FindAndVerifyInstance(connectProbeTimeout) {
			session.attachLink(link)
			logger.Info("Editor connected", "pid", session.PID(), "node_id", link.NodeID())
			return LaunchResult{
				Success: true,
				Message: "Editor launched and connected",
				PID:     session.PID(),
				NodeID:  link.NodeID(),
				LogPath: session.LogPath(),
			}
		}
		link.Close()

		time.Sleep(connectPollInterval)
	}

	logger.Warn("Timeout waiting for editor connection, continuing in background")
	go s.backgroundConnectLoop(session)

	return LaunchResult{
		Success:              false,
		Error:                "Timeout waiting for editor to enable remote execution. Background connection continues.",
		PID:                  session.PID(),
		LogPath:              session.LogPath(),
		BackgroundConnecting: true,
	}
}

// backgroundConnectLoop keeps probing for the remote execution endpoint
// until connected, the process exits, or a stop is requested.
func (s *Supervisor) backgroundConnectLoop(session *Session) {
	interval := time.Duration(s.cfg.ReconnectIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger.Info("Starting background connection loop", "interval", interval)

	for {
		if _, exited := session.Poll(); exited {
			logger.Info("Editor process exited, stopping background connection loop")
			return
		}
		if session.IntentionalStop() {
			return
		}
		if session.Status() == StatusReady {
			return
		}

		link := s.newLink(session)
		if link.FindAndVerifyInstance(connectProbeTimeout) {
			session.attachLink(link)
			logger.Info("Background connect succeeded", "node_id", link.NodeID())
			return
		}
		link.Close()

		time.Sleep(interval)
	}
}

func (s *Supervisor) startMonitor(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.monitor = NewMonitor(session, MonitorOptions{
		Interval:     time.Duration(s.cfg.HealthIntervalSeconds) * time.Second,
		LogTailBytes: int64(s.cfg.CrashLogTailBytes),
		OnEvent:      s.recordHealthEvent,
	})
	s.monitor.Start()
}

// recordHealthEvent keeps the monitor's last exit notification so status
// queries can report how the previous session ended.
func (s *Supervisor) recordHealthEvent(event HealthEvent) {
	s.mu.Lock()
	s.lastHealth = &event
	s.mu.Unlock()
}

// Session returns the current session, or nil when nothing was launched.
func (s *Supervisor) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Link returns the live remote execution client.
func (s *Supervisor) Link() (*remoteexec.Client, error) {
	session := s.Session()
	if session == nil {
		return nil, ErrNotConnected
	}
	link := session.Link()
	if link == nil || !link.IsConnected() {
		return nil, ErrNotConnected
	}
	return link, nil
}

// Execute runs a Python statement over the remote link. A crash-classified
// result marks the session stopped so status reads reflect the loss
// immediately instead of waiting for the next health check.
func (s *Supervisor) Execute(code string, timeout time.Duration) remoteexec.Result {
	link, err := s.Link()
	if err != nil {
		return remoteexec.Result{
			Error:  "Editor is not connected. Use editor_launch first.",
			Output: []remoteexec.OutputLine{},
		}
	}

	result := link.Execute(code, remoteexec.ExecuteStatement, timeout)
	if ResultIndicatesCrash(result) {
		result.Crashed = true
		logger.Error("Editor connection lost during execution")
		if session := s.Session(); session != nil {
			session.setStatus(StatusStopped)
		}
	}
	return result
}

// IsRunning reports whether a launched editor process is still alive.
func (s *Supervisor) IsRunning() bool {
	session := s.Session()
	if session == nil {
		return false
	}
	_, exited := session.Poll()
	return !exited
}

// StatusInfo is a point-in-time view of the managed editor.
type StatusInfo struct {
	Status      string       `json:"status"`
	ProjectName string       `json:"project_name"`
	ProjectPath string       `json:"project_path"`
	PID         int          `json:"pid,omitempty"`
	StartedAt   string       `json:"started_at,omitempty"`
	Connected   bool         `json:"connected"`
	NodeID      string       `json:"node_id,omitempty"`
	LogPath     string       `json:"log_file_path,omitempty"`
	LastExit    *HealthEvent `json:"last_exit,omitempty"`
}

// Status returns the current editor status.
func (s *Supervisor) Status() StatusInfo {
	session := s.Session()

	s.mu.Lock()
	lastExit := s.lastHealth
	s.mu.Unlock()

	if session == nil {
		return StatusInfo{
			Status:      "not_running",
			ProjectName: s.ProjectName(),
			ProjectPath: s.cfg.ProjectPath,
			LastExit:    lastExit,
		}
	}
	return StatusInfo{
		Status:      session.Status(),
		ProjectName: s.ProjectName(),
		ProjectPath: s.cfg.ProjectPath,
		PID:         session.PID(),
		StartedAt:   session.StartedAt().Format(time.RFC3339),
		Connected:   session.Connected(),
		NodeID:      session.NodeID(),
		LogPath:     session.LogPath(),
		LastExit:    lastExit,
	}
}

// LogContent is the result of reading the editor log file.
type LogContent struct {
	Success  bool   `json:"success"`
	LogPath  string `json:"log_file_path,omitempty"`
	Content  string `json:"content,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReadLog returns the editor log, optionally only the last tailLines lines.
func (s *Supervisor) ReadLog(tailLines int) LogContent {
	session := s.Session()
	if session == nil || session.LogPath() == "" {
		return LogContent{
			Success: false,
			Error:   "No log file path available. Editor may not have been launched yet.",
		}
	}
	logPath := session.LogPath()

	info, err := os.Stat(logPath)
	if err != nil {
		return LogContent{
			Success: false,
			Error:   fmt.Sprintf("Log file does not exist: %s", logPath),
			LogPath: logPath,
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return LogContent{
			Success: false,
			Error:   fmt.Sprintf("Failed to read log file: %v", err),
			LogPath: logPath,
		}
	}

	content := string(data)
	if tailLines > 0 {
		lines := strings.SplitAfter(content, "\n")
		if len(lines) > tailLines {
			content = strings.Join(lines[len(lines)-tailLines:], "")
		}
	}

	return LogContent{
		Success:  true,
		LogPath:  logPath,
		Content:  content,
		FileSize: info.Size(),
	}
}

// StopResult reports the outcome of a stop request.
type StopResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Stop shuts the editor down: graceful quit over the remote link first, then
// SIGTERM, then SIGKILL. The intentional-stop flag is set before anything
// else so the health monitor stays quiet.
func (s *Supervisor) Stop() StopResult {
	s.mu.Lock()
	session := s.session
	monitor := s.monitor
	s.monitor = nil
	s.mu.Unlock()

	if session == nil {
		return StopResult{Success: false, Error: "No editor is running"}
	}

	session.MarkIntentionalStop()
	if monitor != nil {
		monitor.Stop()
	}

	if _, exited := session.Poll(); exited {
		s.clearSession(session)
		return StopResult{Success: true, Message: "Editor was already stopped"}
	}

	logger.Info("Stopping editor", "pid", session.PID())

	grace := time.Duration(s.cfg.StopGracePeriodSeconds) * time.Second
	if grace <= 0 {
		grace = 5 * time.Second
	}

	if link := session.Link(); link != nil && link.IsConnected() {
		logger.Info("Attempting graceful shutdown")
		result := link.Execute(
			"import unreal; unreal.SystemLibrary.quit_editor()",
			remoteexec.ExecuteStatement,
			quitCommandTimeout,
		)
		if !result.Success && !result.Crashed {
			logger.Warn("Graceful shutdown command failed", "error", result.Error)
		}
		link.Close()
	}

	if s.waitExit(session, grace) {
		logger.Info("Editor stopped gracefully")
		s.clearSession(session)
		return StopResult{Success: true, Message: "Editor stopped"}
	}

	logger.Warn("Graceful shutdown timed out, forcing termination")
	_ = session.cmd.Process.Signal(syscall.SIGTERM)
	if !s.waitExit(session, grace) {
		logger.Error("Termination timed out, killing process")
		_ = session.cmd.Process.Kill()
		s.waitExit(session, grace)
	}

	s.clearSession(session)
	return StopResult{Success: true, Message: "Editor stopped"}
}

func (s *Supervisor) waitExit(session *Session, timeout time.Duration) bool {
	select {
	case <-session.Done():
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Supervisor) clearSession(session *Session) {
	session.setStatus(StatusStopped)
	if link := session.Link(); link != nil {
		link.Close()
	}
	s.mu.Lock()
	if s.session == session {
		s.session = nil
	}
	s.mu.Unlock()
}

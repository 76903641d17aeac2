package editor

import (
	"sync"
	"time"

	"github.com/slighter12/unreal-mcp-go/logger"
)

const defaultHealthInterval = 5 * time.Second

// HealthEvent is emitted when the monitor observes the process exit.
type HealthEvent struct {
	Level    string   `json:"level"`
	Message  string   `json:"message"`
	ExitInfo ExitInfo `json:"exit_info"`
}

// watchedProcess is the slice of Session the monitor needs. Kept as an
// interface so the poll loop is testable without a real process.
type watchedProcess interface {
	Poll() (int, bool)
	LogPath() string
	IntentionalStop() bool
	setStatus(string)
	releaseLink()
}

// MonitorOptions configures a health monitor.
type MonitorOptions struct {
	Interval     time.Duration
	LogTailBytes int64
	// OnEvent receives exit notifications. Called from the monitor
	// goroutine; may be nil.
	OnEvent func(HealthEvent)
}

// Monitor periodically checks that the editor process is alive and reports
// how it exited. It never restarts the editor: a crashed session stays down
// until a new launch is requested, so state is never silently rebuilt
// underneath a caller.
type Monitor struct {
	session watchedProcess
	opts    MonitorOptions

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// NewMonitor creates a monitor for one session.
func NewMonitor(session watchedProcess, opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = defaultHealthInterval
	}
	return &Monitor{
		session: session,
		opts:    opts,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the monitor goroutine. Calling Start twice is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	go m.loop()
	logger.Info("Health monitor started", "interval", m.opts.Interval)
}

// Stop terminates the monitor goroutine. Safe to call twice.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.stopCh)
	logger.Info("Health monitor stopped")
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if m.check() {
				return
			}
		}
	}
}

// check polls the process once. Returns true when monitoring is finished.
// An exited process always gets its link released, so the sockets do not
// linger until the next launch or stop.
func (m *Monitor) check() bool {
	code, exited := m.session.Poll()
	if !exited {
		return false
	}

	m.session.setStatus(StatusStopped)
	m.session.releaseLink()

	if m.session.IntentionalStop() {
		logger.Info("Editor stopped intentionally")
		m.notify(HealthEvent{
			Level:   "info",
			Message: "Editor stopped intentionally",
			ExitInfo: ExitInfo{
				Type:        ExitNormal,
				Code:        code,
				Description: "Editor stopped intentionally",
			},
		})
		return true
	}

	info := ClassifyExitWithLog(code, m.session.LogPath(), m.opts.LogTailBytes)
	level := "info"
	logExit := logger.Info
	switch info.Type {
	case ExitCrash:
		level = "error"
		logExit = logger.Error
	case ExitError:
		level = "warning"
		logExit = logger.Warn
	}
	logExit("Editor process exited unexpectedly",
		"exit_code", code, "exit_type", info.Type, "description", info.Description)

	m.notify(HealthEvent{
		Level:    level,
		Message:  info.Description + ". Use editor_launch to restart.",
		ExitInfo: info,
	})
	return true
}

func (m *Monitor) notify(event HealthEvent) {
	if m.opts.OnEvent != nil {
		m.opts.OnEvent(event)
	}
}

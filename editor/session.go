// Package editor manages the lifecycle of a single Unreal Editor instance:
// launching the process, establishing the remote execution link, watching
// process health, and classifying how the process exits.
package editor

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/slighter12/unreal-mcp-go/remoteexec"
)

// Session status values.
const (
	StatusStarting = "starting"
	StatusReady    = "ready"
	StatusStopped  = "stopped"
)

// Session is one launched editor process together with its remote execution
// link. All fields are guarded by the mutex; the wait goroutine records the
// exit state exactly once.
type Session struct {
	mu sync.Mutex

	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	status    string
	logPath   string
	port      int

	link   *remoteexec.Client
	nodeID string

	intentionalStop bool

	exited   bool
	exitCode int
	done     chan struct{}
}

func newSession(cmd *exec.Cmd, logPath string, port int) *Session {
	s := &Session{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		status:    StatusStarting,
		logPath:   logPath,
		port:      port,
		done:      make(chan struct{}),
	}
	go s.wait()
	return s
}

// wait reaps the process and records its exit code. Signal deaths are folded
// into negative codes so exit classification sees them as crashes.
func (s *Session) wait() {
	err := s.cmd.Wait()
	code := s.cmd.ProcessState.ExitCode()
	if code == -1 {
		if ws, ok := s.cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			code = -int(ws.Signal())
		}
	}
	_ = err

	s.mu.Lock()
	s.exited = true
	s.exitCode = code
	s.status = StatusStopped
	s.mu.Unlock()
	close(s.done)
}

// Poll reports whether the process has exited and with which code.
func (s *Session) Poll() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exited
}

// Done is closed when the process has been reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// PID returns the editor process id.
func (s *Session) PID() int { return s.pid }

// StartedAt returns the launch time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// LogPath returns the editor log file for this session.
func (s *Session) LogPath() string { return s.logPath }

// Port returns the multicast reply port allocated to this instance.
func (s *Session) Port() int { return s.port }

// Status returns the session status, demoting to stopped if the process has
// exited since the last query.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Link returns the remote execution client, or nil before connection.
func (s *Session) Link() *remoteexec.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

// NodeID returns the connected instance identity.
func (s *Session) NodeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeID
}

// releaseLink closes the remote execution link and drops it, freeing the
// TCP and multicast sockets. Safe when no link is attached.
func (s *Session) releaseLink() {
	s.mu.Lock()
	link := s.link
	s.link = nil
	s.mu.Unlock()
	if link != nil {
		link.Close()
	}
}

func (s *Session) attachLink(link *remoteexec.Client) {
	s.mu.Lock()
	s.link = link
	s.nodeID = link.NodeID()
	s.status = StatusReady
	s.mu.Unlock()
}

// MarkIntentionalStop flags the session so the health monitor does not treat
// the coming exit as a crash. Must be set before the stop sequence begins.
func (s *Session) MarkIntentionalStop() {
	s.mu.Lock()
	s.intentionalStop = true
	s.mu.Unlock()
}

// IntentionalStop reports whether a stop was requested for this session.
func (s *Session) IntentionalStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intentionalStop
}

// Connected reports whether the remote execution link is established.
func (s *Session) Connected() bool {
	link := s.Link()
	return link != nil && link.IsConnected()
}

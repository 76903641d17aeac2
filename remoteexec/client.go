package remoteexec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/slighter12/unreal-mcp-go/logger"
)

const (
	defaultGroupIP   = "239.0.0.1"
	defaultGroupPort = 6766
	pollSlice        = 100 * time.Millisecond
	acceptTimeout    = 5 * time.Second
	verifyTimeout    = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	// MulticastGroupIP and MulticastGroupPort form the discovery rendezvous.
	MulticastGroupIP   string
	MulticastGroupPort int
	// ProjectName filters discovery replies to instances of one project.
	ProjectName string
	// ExpectedNodeID restricts discovery to a known instance identity.
	ExpectedNodeID string
	// ExpectedPID, when non-zero, is verified against the remote process id
	// after connecting.
	ExpectedPID int
	// RequireUnique turns discovery ambiguity into a failure instead of a
	// deterministic pick.
	RequireUnique bool
}

// Result is the outcome of one remote execution.
type Result struct {
	Success bool         `json:"success"`
	Result  string       `json:"result,omitempty"`
	Output  []OutputLine `json:"output"`
	Error   string       `json:"error,omitempty"`
	// Crashed marks connection-level failures (reset, broken pipe): the
	// session is gone, not just this call.
	Crashed bool `json:"crashed,omitempty"`
}

// Client is one discovery-plus-command session against a single editor
// instance. Execute calls must be serialized by the caller; there is no
// multiplexing of in-flight commands.
type Client struct {
	opts   Options
	source string

	mu       sync.Mutex
	nodeID   string
	mcast    *net.UDPConn
	listener *net.TCPListener
	conn     net.Conn
}

// NewClient creates a client with its own source identity on the discovery
// channel.
func NewClient(opts Options) *Client {
	if opts.MulticastGroupIP == "" {
		opts.MulticastGroupIP = defaultGroupIP
	}
	if opts.MulticastGroupPort == 0 {
		opts.MulticastGroupPort = defaultGroupPort
	}
	return &Client{
		opts:   opts,
		source: "ue-mcp-" + uuid.NewString()[:8],
	}
}

// NodeID returns the connected instance identity, or "" before discovery.
func (c *Client) NodeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodeID
}

// IsConnected reports whether a command channel is established.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.nodeID != ""
}

func (c *Client) groupAddr() *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.ParseIP(c.opts.MulticastGroupIP),
		Port: c.opts.MulticastGroupPort,
	}
}

// FindInstance broadcasts a discovery ping and collects every reply inside
// the timeout window. Socket errors are swallowed: discovery failure means
// "no instance found", never an exception to the caller.
func (c *Client) FindInstance(timeout time.Duration) bool {
	gaddr := c.groupAddr()
	mcast, err := net.ListenMulticastUDP("udp4", nil, gaddr)
	if err != nil {
		logger.Error("Failed to open discovery socket", "error", err)
		return false
	}

	ping, err := newMessage(TypePing, c.source, "", nil)
	if err != nil {
		mcast.Close()
		return false
	}
	data, err := json.Marshal(ping)
	if err != nil {
		mcast.Close()
		return false
	}
	if _, err := mcast.WriteToUDP(data, gaddr); err != nil {
		logger.Error("Failed to send discovery ping", "error", err)
		mcast.Close()
		return false
	}

	candidates := c.collectReplies(mcast, timeout)
	filtered := filterCandidates(candidates, c.opts.ProjectName, c.opts.ExpectedNodeID)

	selected, found, ambiguous := selectCandidate(filtered)
	if !found {
		logger.Error("No editor instances discovered",
			"replies", len(candidates), "project_filter", c.opts.ProjectName)
		mcast.Close()
		return false
	}
	if ambiguous {
		if c.opts.RequireUnique {
			logger.Error("Discovery ambiguous and unique instance required",
				"candidates", len(filtered))
			mcast.Close()
			return false
		}
		logger.Warn("Multiple editor instances discovered, selected deterministically",
			"candidates", len(filtered), "selected", selected.NodeID)
	}

	logger.Info("Discovered editor instance",
		"node_id", selected.NodeID,
		"project", selected.ProjectName,
		"engine", selected.EngineVersion)

	c.mu.Lock()
	c.nodeID = selected.NodeID
	c.mcast = mcast
	c.mu.Unlock()
	return true
}

func (c *Client) collectReplies(mcast *net.UDPConn, timeout time.Duration) []Candidate {
	var candidates []Candidate
	buf := make([]byte, bufferSize)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		_ = mcast.SetReadDeadline(time.Now().Add(pollSlice))
		n, _, err := mcast.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			logger.Debug("Discovery read error", "error", err)
			continue
		}

		var msg Message
		if err := json.Unmarshal(buf[:n], &msg); err != nil {
			continue
		}
		if candidate, ok := parseCandidate(msg, c.source); ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// OpenConnection asks the discovered instance to dial back a private command
// channel on an ephemeral local port.
func (c *Client) OpenConnection() error {
	c.mu.Lock()
	nodeID, mcast := c.nodeID, c.mcast
	c.mu.Unlock()
	if nodeID == "" || mcast == nil {
		return errors.New("no editor instance discovered")
	}

	addr, err := net.ResolveTCPAddr("tcp4", "127.0.0.1:0")
	if err != nil {
		return err
	}
	listener, err := net.ListenTCP("tcp4", addr)
	if err != nil {
		return fmt.Errorf("open command listener: %w", err)
	}
	cmdPort := listener.Addr().(*net.TCPAddr).Port

	open, err := newMessage(TypeOpenConnection, c.source, nodeID, OpenConnectionData{
		CommandIP:   "127.0.0.1",
		CommandPort: cmdPort,
	})
	if err != nil {
		listener.Close()
		return err
	}
	data, err := json.Marshal(open)
	if err != nil {
		listener.Close()
		return err
	}
	if _, err := mcast.WriteToUDP(data, c.groupAddr()); err != nil {
		listener.Close()
		return fmt.Errorf("send open_connection: %w", err)
	}

	_ = listener.SetDeadline(time.Now().Add(acceptTimeout))
	conn, err := listener.Accept()
	if err != nil {
		listener.Close()
		return fmt.Errorf("editor did not dial command channel: %w", err)
	}

	c.mu.Lock()
	c.listener = listener
	c.conn = conn
	c.mu.Unlock()

	logger.Info("Command connection established", "node_id", nodeID, "port", cmdPort)
	return nil
}

// FindAndVerifyInstance runs the full handshake: discovery, command channel,
// and optional process-identity verification. Attaching to the wrong
// instance is the failure mode this guards against.
func (c *Client) FindAndVerifyInstance(timeout time.Duration) bool {
	if !c.FindInstance(timeout) {
		return false
	}
	if err := c.OpenConnection(); err != nil {
		logger.Error("Failed to open command connection", "error", err)
		c.Close()
		return false
	}
	if c.opts.ExpectedPID != 0 && !c.VerifyPID(c.opts.ExpectedPID) {
		logger.Warn("Process identity verification failed, disconnecting",
			"expected_pid", c.opts.ExpectedPID)
		c.Close()
		return false
	}
	return true
}

// Execute sends one command and blocks until its result or the timeout. The
// broadcast echo of our own command is filtered out; the first non-echo
// message is the result.
func (c *Client) Execute(command string, mode ExecMode, timeout time.Duration) Result {
	c.mu.Lock()
	conn, nodeID := c.conn, c.nodeID
	c.mu.Unlock()
	if conn == nil {
		return Result{Success: false, Error: "not connected to editor", Output: []OutputLine{}}
	}

	msg, err := newMessage(TypeCommand, c.source, nodeID, CommandData{
		Command:    command,
		Unattended: true,
		ExecMode:   mode,
	})
	if err != nil {
		return Result{Success: false, Error: err.Error(), Output: []OutputLine{}}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return Result{Success: false, Error: err.Error(), Output: []OutputLine{}}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(data); err != nil {
		return c.failure(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, bufferSize)
	var accumulated []byte

	for {
		n, err := conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return Result{Success: false, Error: "no response from editor", Output: []OutputLine{}}
			}
			return c.failure(err)
		}
		accumulated = append(accumulated, buf[:n]...)

		var reply Message
		if err := json.Unmarshal(accumulated, &reply); err != nil {
			// Partial frame, keep reading.
			continue
		}
		accumulated = accumulated[:0]

		if reply.Type == TypeCommand {
			continue // our own echo
		}

		var payload CommandResultData
		if len(reply.Data) > 0 {
			if err := json.Unmarshal(reply.Data, &payload); err != nil {
				return Result{Success: false, Error: fmt.Sprintf("malformed command result: %v", err), Output: []OutputLine{}}
			}
		}
		if payload.Output == nil {
			payload.Output = []OutputLine{}
		}
		return Result{
			Success: payload.Success,
			Result:  payload.Result,
			Output:  payload.Output,
		}
	}
}

// failure classifies a transport error: dropped connections mean the editor
// side is gone (crashed), anything else is an ordinary failure.
func (c *Client) failure(err error) Result {
	if isConnectionError(err) {
		logger.Error("Connection lost during command execution", "error", err)
		return Result{Success: false, Error: err.Error(), Crashed: true, Output: []OutputLine{}}
	}
	logger.Error("Command execution failed", "error", err)
	return Result{Success: false, Error: err.Error(), Output: []OutputLine{}}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}

// VerifyPID asks the remote interpreter for its own process id and compares.
func (c *Client) VerifyPID(expected int) bool {
	if !c.IsConnected() {
		return false
	}

	result := c.Execute("import os; print(os.getpid())", ExecuteStatement, verifyTimeout)
	if !result.Success {
		logger.Warn("Failed to verify PID: execution failed", "error", result.Error)
		return false
	}

	for _, line := range result.Output {
		text := strings.TrimSpace(line.Output)
		actual, err := strconv.Atoi(text)
		if err != nil {
			continue
		}
		if actual == expected {
			logger.Info("PID verification successful", "pid", actual)
			return true
		}
		logger.Warn("PID mismatch", "expected", expected, "actual", actual)
		return false
	}

	logger.Warn("Failed to verify PID: could not parse output")
	return false
}

// Close notifies the editor and releases every socket. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nodeID != "" && c.mcast != nil {
		if msg, err := newMessage(TypeCloseConnection, c.source, c.nodeID, nil); err == nil {
			if data, err := json.Marshal(msg); err == nil {
				_, _ = c.mcast.WriteToUDP(data, c.groupAddr())
			}
		}
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.listener != nil {
		c.listener.Close()
		c.listener = nil
	}
	if c.mcast != nil {
		c.mcast.Close()
		c.mcast = nil
	}
	c.nodeID = ""
}

package editor

import (
	"fmt"
	"os"
	"strings"

	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
)

// ExitType classifies how the editor process ended.
type ExitType string

const (
	ExitNormal ExitType = "normal"
	ExitError  ExitType = "error"
	ExitCrash  ExitType = "crash"
)

// ExitInfo describes one process exit.
type ExitInfo struct {
	Type        ExitType `json:"exit_type"`
	Code        int      `json:"exit_code"`
	HexCode     string   `json:"hex_code,omitempty"`
	Description string   `json:"description"`
}

// DefaultLogTailBytes is how much of the log file tail is scanned for crash
// indicators when no explicit size is configured.
const DefaultLogTailBytes = 100 * 1024

// crashIndicators are substrings that mark a fatal editor failure when found
// in log or execution output.
var crashIndicators = []string{
	"[CRASH]",
	"Fatal error:",
	"Access violation",
	"Unhandled Exception",
	"SIGSEGV",
	"Assertion failed",
	"Ensure condition failed",
	"LowLevelFatalError",
	"Out of memory",
	"GPU crash",
	"D3D11/12 crash",
	"Rendering thread exception",
	"Game thread exception",
}

// windowsCrashCodes maps NTSTATUS exit codes, as signed 32-bit integers, to
// their names. Signal deaths on other platforms also land here as small
// negative codes and fall through to the generic description.
var windowsCrashCodes = map[int]string{
	-1073741819: "ACCESS_VIOLATION (0xC0000005)",
	-1073741795: "ILLEGAL_INSTRUCTION (0xC000001D)",
	-1073741571: "STACK_OVERFLOW (0xC00000FD)",
	-1073740791: "HEAP_CORRUPTION (0xC0000374)",
	-1073740940: "STATUS_STACK_BUFFER_OVERRUN (0xC0000409)",
	-1073741676: "INTEGER_DIVIDE_BY_ZERO (0xC0000094)",
	-1073741675: "INTEGER_OVERFLOW (0xC0000095)",
	-1073741674: "PRIVILEGED_INSTRUCTION (0xC0000096)",
	-1073741811: "INVALID_HANDLE (0xC0000008)",
	-1073741801: "INVALID_PARAMETER (0xC000000D)",
	-1073740777: "FATAL_APP_EXIT (0xC0000417)",
}

// ClassifyExit maps an exit code to normal, error, or crash.
func ClassifyExit(code int) ExitInfo {
	switch {
	case code == 0:
		return ExitInfo{
			Type:        ExitNormal,
			Code:        0,
			Description: "Editor exited normally",
		}
	case code > 0:
		return ExitInfo{
			Type:        ExitError,
			Code:        code,
			Description: fmt.Sprintf("Editor exited with error code %d", code),
		}
	default:
		hexCode := fmt.Sprintf("0x%x", uint32(code))
		description := fmt.Sprintf("Editor crashed with code %s", hexCode)
		if name, ok := windowsCrashCodes[code]; ok {
			description = "Editor crashed: " + name
		}
		return ExitInfo{
			Type:        ExitCrash,
			Code:        code,
			HexCode:     hexCode,
			Description: description,
		}
	}
}

// FindCrashIndicator scans text for a known crash marker and returns the
// first one found.
func FindCrashIndicator(content string) (string, bool) {
	for _, indicator := range crashIndicators {
		if strings.Contains(content, indicator) {
			return indicator, true
		}
	}
	return "", false
}

// LogHasCrashIndicators reads up to tailBytes from the end of the log file
// and scans for crash markers. Read failures count as no crash.
func LogHasCrashIndicators(logPath string, tailBytes int64) bool {
	if logPath == "" {
		return false
	}
	if tailBytes <= 0 {
		tailBytes = DefaultLogTailBytes
	}

	info, err := os.Stat(logPath)
	if err != nil {
		return false
	}

	f, err := os.Open(logPath)
	if err != nil {
		logger.Debug("Failed to open log file for crash check", "path", logPath, "error", err)
		return false
	}
	defer f.Close()

	readSize := info.Size()
	if readSize > tailBytes {
		if _, err := f.Seek(info.Size()-tailBytes, 0); err != nil {
			return false
		}
		readSize = tailBytes
	}

	buf := make([]byte, readSize)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}

	indicator, found := FindCrashIndicator(string(buf[:n]))
	if found {
		logger.Debug("Found crash indicator in log tail", "indicator", indicator)
	}
	return found
}

// ClassifyExitWithLog classifies an exit code and, for a clean exit, checks
// the log tail as well. A crash-report dialog can swallow the real code and
// let the process exit 0, so exit 0 plus crash markers is still a crash.
func ClassifyExitWithLog(code int, logPath string, tailBytes int64) ExitInfo {
	info := ClassifyExit(code)
	if info.Type == ExitCrash {
		return info
	}
	if code == 0 && LogHasCrashIndicators(logPath, tailBytes) {
		return ExitInfo{
			Type:        ExitCrash,
			Code:        0,
			Description: "Editor crashed (exit code 0, but log shows crash)",
		}
	}
	return info
}

// ResultIndicatesCrash inspects an execution result for crash evidence:
// either the transport already flagged a dropped connection, or a failed
// result carries a crash marker in its error or output text.
func ResultIndicatesCrash(result remoteexec.Result) bool {
	if result.Crashed {
		return true
	}
	if result.Success {
		return false
	}
	combined := result.Error + remoteexec.FlattenOutput(result.Output)
	indicator, found := FindCrashIndicator(combined)
	if found {
		logger.Warn("Detected crash indicator in execution result", "indicator", indicator)
	}
	return found
}

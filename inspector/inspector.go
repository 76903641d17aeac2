// Package inspector runs a static safety pass over Python code before it is
// sent to the editor. Checkers are pluggable: each one receives a lexical
// scan of the code and returns issues; an ERROR-severity issue from any
// checker blocks execution, WARNING issues are advisory.
package inspector

import (
	"fmt"
	"strings"

	"github.com/slighter12/unreal-mcp-go/logger"
)

// Severity of an inspection issue.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue is one finding from one checker.
type Issue struct {
	Severity   Severity `json:"severity"`
	Checker    string   `json:"checker"`
	Message    string   `json:"message"`
	Line       int      `json:"line_number,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Result aggregates every checker's findings.
type Result struct {
	Allowed bool    `json:"allowed"`
	Issues  []Issue `json:"issues"`
}

// ErrorCount returns the number of blocking issues.
func (r Result) ErrorCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of advisory issues.
func (r Result) WarningCount() int {
	return len(r.Issues) - r.ErrorCount()
}

// FormatError renders the issues as a human-readable message.
func (r Result) FormatError() string {
	var b strings.Builder
	b.WriteString("Code inspection failed:\n")
	for _, issue := range r.Issues {
		b.WriteString("\n")
		if issue.Line > 0 {
			fmt.Fprintf(&b, "[%s] %s (line %d):\n", issue.Severity, issue.Checker, issue.Line)
		} else {
			fmt.Fprintf(&b, "[%s] %s:\n", issue.Severity, issue.Checker)
		}
		fmt.Fprintf(&b, "  %s\n", issue.Message)
		if issue.Suggestion != "" {
			fmt.Fprintf(&b, "\n  Suggestion: %s\n", issue.Suggestion)
		}
	}
	return b.String()
}

// Checker analyzes scanned code and reports issues.
type Checker interface {
	Name() string
	Description() string
	Check(scan *Scan) []Issue
}

// Inspector runs all registered checkers over a piece of code.
type Inspector struct {
	checkers []Checker
}

// New creates an inspector with the given checkers. With no arguments the
// inspector allows everything.
func New(checkers ...Checker) *Inspector {
	ins := &Inspector{}
	for _, c := range checkers {
		ins.Register(c)
	}
	return ins
}

// Register adds a checker.
func (ins *Inspector) Register(c Checker) {
	ins.checkers = append(ins.checkers, c)
	logger.Debug("Registered code checker", "checker", c.Name())
}

// Checkers returns the registered checkers.
func (ins *Inspector) Checkers() []Checker {
	out := make([]Checker, len(ins.checkers))
	copy(out, ins.checkers)
	return out
}

// Inspect runs every checker. A checker that panics is logged and skipped;
// one broken checker must never take down the whole pass.
func (ins *Inspector) Inspect(code string) Result {
	scan := ScanCode(code)

	var issues []Issue
	for _, checker := range ins.checkers {
		issues = append(issues, ins.runChecker(checker, scan)...)
	}

	allowed := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			allowed = false
			break
		}
	}
	if issues == nil {
		issues = []Issue{}
	}
	return Result{Allowed: allowed, Issues: issues}
}

func (ins *Inspector) runChecker(checker Checker, scan *Scan) (issues []Issue) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Code checker failed", "checker", checker.Name(), "panic", r)
			issues = nil
		}
	}()
	return checker.Check(scan)
}

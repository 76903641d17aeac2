package inspector

import "fmt"

const blockingCallSuggestion = "For async operations, use tick callbacks instead:\n" +
	"    - unreal.register_slate_post_tick_callback(callback)\n" +
	"    - unreal.unregister_slate_post_tick_callback(handle)"

// blockingCalls are (module, function) pairs that freeze the editor's main
// thread when called from injected code.
var blockingCalls = map[[2]string]struct{}{
	{"time", "sleep"}: {},
}

// BlockingCallChecker reports calls to blocking primitives like
// time.sleep(), resolving import aliases and from-import renames. The
// severity is policy, not fact: sleeping is advisory by default but an
// integrator may escalate it to blocking.
type BlockingCallChecker struct {
	severity Severity
}

// NewBlockingCallChecker creates the checker with the given report
// severity. An empty severity defaults to WARNING.
func NewBlockingCallChecker(severity Severity) *BlockingCallChecker {
	if severity != SeverityError {
		severity = SeverityWarning
	}
	return &BlockingCallChecker{severity: severity}
}

func (c *BlockingCallChecker) Name() string { return "BlockingCallChecker" }

func (c *BlockingCallChecker) Description() string {
	return "Detects blocking calls like time.sleep() that freeze the main thread"
}

func (c *BlockingCallChecker) Check(scan *Scan) []Issue {
	var issues []Issue
	for _, call := range scan.Calls {
		module, fn, ok := scan.ResolveCall(call)
		if !ok {
			continue
		}
		if _, blocking := blockingCalls[[2]string{module, fn}]; !blocking {
			continue
		}
		issues = append(issues, Issue{
			Severity: c.severity,
			Checker:  c.Name(),
			Message: fmt.Sprintf("Detected '%s.%s()' call which blocks the Unreal Engine main thread.",
				module, fn),
			Line:       call.Line,
			Suggestion: blockingCallSuggestion,
		})
	}
	return issues
}

// Package executor is the execution pipeline around the raw remote link:
// syntax pre-flight, static inspection, module-cache eviction, change
// tracking snapshots, import pre-execution with bounded auto-install, and
// diagnostic enrichment of the final result.
package executor

import (
	"fmt"
	"sort"
	"strings"
)

// bundledModules ship with this server inside the editor's site-packages.
// The editor process is long-lived, so cached copies must be evicted before
// each run or stale code keeps executing after an update.
var bundledModules = map[string]struct{}{
	"asset_diagnostic": {},
	"editor_capture":   {},
}

// CheckSyntax runs a cheap structural pre-flight: unterminated strings and
// unbalanced brackets. It catches the broken-paste class of errors before a
// round trip; the remote interpreter remains the authority on full syntax.
func CheckSyntax(code string) error {
	var stack []byte
	line := 1
	inString := byte(0)
	triple := false
	escaped := false

	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch == '\n' {
			line++
			if inString != 0 && !triple {
				return fmt.Errorf("SyntaxError: unterminated string literal (line %d)", line-1)
			}
		}

		if inString != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == inString:
				if triple {
					if strings.HasPrefix(code[i:], strings.Repeat(string(inString), 3)) {
						triple = false
						inString = 0
						i += 2
					}
				} else {
					inString = 0
				}
			}
			continue
		}

		switch ch {
		case '#':
			for i < len(code) && code[i] != '\n' {
				i++
			}
			i--
		case '\'', '"':
			inString = ch
			if strings.HasPrefix(code[i:], strings.Repeat(string(ch), 3)) {
				triple = true
				i += 2
			}
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 {
				return fmt.Errorf("SyntaxError: unmatched '%c' (line %d)", ch, line)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !bracketsMatch(open, ch) {
				return fmt.Errorf("SyntaxError: mismatched '%c' (line %d)", ch, line)
			}
		}
	}

	if inString != 0 {
		return fmt.Errorf("SyntaxError: unterminated string literal (line %d)", line)
	}
	if len(stack) > 0 {
		return fmt.Errorf("SyntaxError: unclosed '%c'", stack[len(stack)-1])
	}
	return nil
}

func bracketsMatch(open, close byte) bool {
	switch open {
	case '(':
		return close == ')'
	case '[':
		return close == ']'
	case '{':
		return close == '}'
	}
	return false
}

// ExtractImportStatements returns the import statements of the code, each
// as its original source text. Parenthesized from-imports keep their
// continuation lines.
func ExtractImportStatements(code string) []string {
	var statements []string
	lines := strings.Split(code, "\n")

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "import ") && !strings.HasPrefix(trimmed, "from ") {
			continue
		}

		stmt := trimmed
		if strings.Contains(trimmed, "(") && !strings.Contains(trimmed, ")") {
			parts := []string{trimmed}
			for i+1 < len(lines) {
				i++
				parts = append(parts, strings.TrimSpace(lines[i]))
				if strings.Contains(lines[i], ")") {
					break
				}
			}
			stmt = strings.Join(parts, " ")
		}
		statements = append(statements, stmt)
	}
	return statements
}

// ExtractBundledImports returns the bundled top-level modules the code
// imports, sorted for deterministic unload-code generation.
func ExtractBundledImports(code string) []string {
	found := make(map[string]struct{})

	for _, stmt := range ExtractImportStatements(code) {
		var moduleClause string
		switch {
		case strings.HasPrefix(stmt, "from "):
			moduleClause = strings.Fields(stmt)[1]
		case strings.HasPrefix(stmt, "import "):
			moduleClause = strings.TrimPrefix(stmt, "import ")
		}
		for _, module := range strings.Split(moduleClause, ",") {
			fields := strings.Fields(strings.TrimSpace(module))
			if len(fields) == 0 {
				continue
			}
			topLevel := strings.Split(fields[0], ".")[0]
			if _, bundled := bundledModules[topLevel]; bundled {
				found[topLevel] = struct{}{}
			}
		}
	}

	modules := make([]string, 0, len(found))
	for module := range found {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	return modules
}

// GenerateUnloadCode builds the remote code that evicts the given modules
// and their submodules from the interpreter's module cache.
func GenerateUnloadCode(modules []string) string {
	if len(modules) == 0 {
		return ""
	}

	quoted := make([]string, len(modules))
	for i, module := range modules {
		quoted[i] = "'" + module + "'"
	}

	return fmt.Sprintf(`import sys as _sys
_bundled_to_unload = [%s]
_keys_to_remove = [_k for _k in list(_sys.modules.keys()) if any(_k == _m or _k.startswith(_m + '.') for _m in _bundled_to_unload)]
for _k in _keys_to_remove:
    del _sys.modules[_k]
del _bundled_to_unload, _keys_to_remove, _sys
`, strings.Join(quoted, ", "))
}

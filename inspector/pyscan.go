package inspector

import (
	"regexp"
	"strings"
)

// Scan is a lexical view of a Python source: its import graph and call
// sites. Checkers resolve names against it instead of re-parsing the code.
type Scan struct {
	Code string
	// ModuleAliases maps a bound name to the module it refers to:
	// "import time" -> {"time": "time"}, "import time as t" -> {"t": "time"}.
	ModuleAliases map[string]string
	// FromImports records "from module import name [as alias]" bindings.
	FromImports []FromImport
	// Calls are the call sites found, with their dotted target path.
	Calls []Call
}

// FromImport is one name bound by a from-import statement.
type FromImport struct {
	Module string
	Name   string
	Alias  string
}

// Call is one call site.
type Call struct {
	// Path is the dotted target split into segments:
	// time.sleep(1) -> ["time", "sleep"]; sleep(1) -> ["sleep"].
	Path []string
	Line int
}

var (
	importPattern     = regexp.MustCompile(`^\s*import\s+(.+)$`)
	fromImportPattern = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+(.+)$`)
	callPattern       = regexp.MustCompile(`([A-Za-z_][\w.]*)\s*\(`)
	keywordGuard      = map[string]struct{}{
		"if": {}, "elif": {}, "while": {}, "for": {}, "return": {},
		"print": {}, "assert": {}, "and": {}, "or": {}, "not": {}, "in": {},
	}
)

// ScanCode lexically scans Python source. It is deliberately tolerant:
// lines it cannot interpret contribute nothing rather than failing the scan.
func ScanCode(code string) *Scan {
	scan := &Scan{
		Code:          code,
		ModuleAliases: make(map[string]string),
	}

	for lineNo, rawLine := range strings.Split(code, "\n") {
		line := stripComment(rawLine)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := fromImportPattern.FindStringSubmatch(trimmed); m != nil {
			scan.addFromImport(m[1], m[2])
			continue
		}
		if m := importPattern.FindStringSubmatch(trimmed); m != nil {
			scan.addImport(m[1])
			continue
		}

		for _, cm := range callPattern.FindAllStringSubmatch(line, -1) {
			path := strings.Split(cm[1], ".")
			if len(path) == 1 {
				if _, kw := keywordGuard[path[0]]; kw {
					continue
				}
			}
			scan.Calls = append(scan.Calls, Call{Path: path, Line: lineNo + 1})
		}
	}
	return scan
}

// addImport handles "import a, b as c".
func (s *Scan) addImport(clause string) {
	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			return
		}
		module := fields[0]
		name := module
		if len(fields) == 3 && fields[1] == "as" {
			name = fields[2]
		}
		s.ModuleAliases[name] = module
	}
}

// addFromImport handles "from m import a, b as c". Parenthesized
// multi-line imports only record the names on the first line, which is
// enough for the advisory checks this scan feeds.
func (s *Scan) addFromImport(module, clause string) {
	clause = strings.Trim(clause, "()")
	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if name == "" || name == "*" {
			continue
		}
		alias := name
		if len(fields) == 3 && fields[1] == "as" {
			alias = fields[2]
		}
		s.FromImports = append(s.FromImports, FromImport{Module: module, Name: name, Alias: alias})
	}
}

// ResolveCall resolves a call path to (module, function) using the scan's
// import bindings. sleep() after "from time import sleep" resolves to
// ("time", "sleep"); t.sleep() after "import time as t" likewise.
func (s *Scan) ResolveCall(call Call) (string, string, bool) {
	switch len(call.Path) {
	case 1:
		for _, fi := range s.FromImports {
			if fi.Alias == call.Path[0] {
				return fi.Module, fi.Name, true
			}
		}
	case 2:
		module, ok := s.ModuleAliases[call.Path[0]]
		if !ok {
			module = call.Path[0]
		}
		return module, call.Path[1], true
	}
	return "", "", false
}

func stripComment(line string) string {
	inSingle, inDouble := false, false
	for i, ch := range line {
		switch ch {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return line[:i]
			}
		}
	}
	return line
}

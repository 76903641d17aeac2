package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// moduleToPackage maps import names to the pip package that provides them
// when the two differ.
var moduleToPackage = map[string]string{
	"PIL":     "Pillow",
	"cv2":     "opencv-python",
	"sklearn": "scikit-learn",
	"yaml":    "PyYAML",
	"bs4":     "beautifulsoup4",
}

// PackageForModule returns the pip package name for an import name.
func PackageForModule(module string) string {
	if pkg, ok := moduleToPackage[module]; ok {
		return pkg
	}
	return module
}

var missingModulePatterns = []*regexp.Regexp{
	regexp.MustCompile(`No module named ['"]([^'"]+)['"]`),
	regexp.MustCompile(`ModuleNotFoundError:\s*No module named\s+(\S+)`),
	// "cannot import name 'x' from 'pkg'" points at pkg, not x.
	regexp.MustCompile(`ImportError: cannot import name ['"][^'"]+['"] from ['"]([^'"]+)['"]`),
}

var importErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)No module named`),
	regexp.MustCompile(`(?i)ModuleNotFoundError`),
	regexp.MustCompile(`(?i)ImportError.*cannot import name`),
}

// IsImportError reports whether the error text describes a missing or
// partially missing Python module.
func IsImportError(errText string) bool {
	for _, p := range importErrorPatterns {
		if p.MatchString(errText) {
			return true
		}
	}
	return false
}

// ExtractMissingModule pulls the top-level module name out of an import
// error message.
func ExtractMissingModule(errText string) (string, bool) {
	for _, p := range missingModulePatterns {
		if m := p.FindStringSubmatch(errText); m != nil {
			module := strings.Trim(m[1], `'"`)
			return strings.Split(module, ".")[0], true
		}
	}
	return "", false
}

// InstallResult is the outcome of one pip invocation.
type InstallResult struct {
	Success  bool     `json:"success"`
	Packages []string `json:"packages"`
	Output   string   `json:"output,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// InstalledPackage is one row of `pip list`.
type InstalledPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Installer installs packages into a Python environment. Satisfied by Pip;
// tests substitute a fake to exercise the retry loop without a network.
type Installer interface {
	Install(pythonPath string, packages []string, upgrade bool) InstallResult
}

const defaultPipTimeout = 300 * time.Second

// Pip shells out to `<python> -m pip`. The editor's interpreter path comes
// from the editor itself, so packages land in the environment the embedded
// interpreter actually imports from.
type Pip struct {
	Timeout time.Duration
}

// NewPip creates a Pip with the default timeout.
func NewPip() *Pip { return &Pip{Timeout: defaultPipTimeout} }

// Install runs pip install for the given packages.
func (p *Pip) Install(pythonPath string, packages []string, upgrade bool) InstallResult {
	if pythonPath == "" {
		return InstallResult{Packages: packages, Error: "no python interpreter path"}
	}
	if len(packages) == 0 {
		return InstallResult{Success: true, Packages: []string{}}
	}

	args := []string{"-m", "pip", "install"}
	if upgrade {
		args = append(args, "--upgrade")
	}
	args = append(args, packages...)

	output, err := p.run(pythonPath, args)
	if err != nil {
		return InstallResult{
			Packages: packages,
			Output:   output,
			Error:    fmt.Sprintf("pip install failed: %v", err),
		}
	}
	return InstallResult{Success: true, Packages: packages, Output: output}
}

// List returns the packages installed in the interpreter's environment.
func (p *Pip) List(pythonPath string) ([]InstalledPackage, error) {
	if pythonPath == "" {
		return nil, fmt.Errorf("no python interpreter path")
	}

	output, err := p.run(pythonPath, []string{"-m", "pip", "list", "--format=json"})
	if err != nil {
		return nil, fmt.Errorf("pip list failed: %w", err)
	}

	var packages []InstalledPackage
	if err := json.Unmarshal([]byte(output), &packages); err != nil {
		return nil, fmt.Errorf("parse pip list output: %w", err)
	}
	return packages, nil
}

func (p *Pip) run(pythonPath string, args []string) (string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultPipTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pythonPath, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

package executor

import "testing"

func TestPackageForModule(t *testing.T) {
	cases := map[string]string{
		"PIL":     "Pillow",
		"cv2":     "opencv-python",
		"sklearn": "scikit-learn",
		"yaml":    "PyYAML",
		"bs4":     "beautifulsoup4",
		"numpy":   "numpy",
	}
	for module, want := range cases {
		if got := PackageForModule(module); got != want {
			t.Errorf("PackageForModule(%q) = %q, want %q", module, got, want)
		}
	}
}

func TestExtractMissingModule(t *testing.T) {
	cases := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"ModuleNotFoundError: No module named 'numpy'", "numpy", true},
		{`No module named "requests"`, "requests", true},
		{"ModuleNotFoundError: No module named yaml", "yaml", true},
		{"ImportError: cannot import name 'foo' from 'scipy.stats'", "scipy", true},
		{"No module named 'matplotlib.pyplot'", "matplotlib", true},
		{"NameError: name 'foo' is not defined", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractMissingModule(tc.text)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ExtractMissingModule(%q) = (%q, %v), want (%q, %v)",
				tc.text, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestIsImportError(t *testing.T) {
	positives := []string{
		"ModuleNotFoundError: No module named 'x'",
		"ImportError: cannot import name 'y' from 'z'",
		"no module named foo",
	}
	for _, text := range positives {
		if !IsImportError(text) {
			t.Errorf("IsImportError(%q) = false, want true", text)
		}
	}
	negatives := []string{
		"SyntaxError: invalid syntax",
		"RuntimeError: something else",
		"",
	}
	for _, text := range negatives {
		if IsImportError(text) {
			t.Errorf("IsImportError(%q) = true, want false", text)
		}
	}
}

func TestPipInstallRequiresInterpreter(t *testing.T) {
	pip := NewPip()
	result := pip.Install("", []string{"numpy"}, false)
	if result.Success {
		t.Fatal("install without an interpreter path must fail")
	}
}

func TestPipInstallNoPackages(t *testing.T) {
	pip := NewPip()
	result := pip.Install("/usr/bin/python3", nil, false)
	if !result.Success {
		t.Fatalf("empty package list should be a no-op success, got %+v", result)
	}
}

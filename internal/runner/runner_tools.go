package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// hasVendorDir checks if the given directory has a vendor subdirectory.
func hasVendorDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "vendor"))
	return err == nil && info.IsDir()
}

// findGoBinary locates the Go executable.
// It first checks PATH, then common installation locations.
func findGoBinary() string {
	if path, err := exec.LookPath("go"); err == nil {
		return path
	}

	commonPaths := []string{
		"/usr/local/go/bin/go",
		"/opt/homebrew/bin/go",
		"/usr/bin/go",
		"/usr/local/bin/go",
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// Fall back to "go" and let exec fail with a clearer message
	return "go"
}

// goModInfo contains parsed go.mod information.
type goModInfo struct {
	ModulePath string
	GoModDir   string
}

// findGoModInfo walks up from dir to the enclosing go.mod.
func findGoModInfo(dir string) (*goModInfo, error) {
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			info := &goModInfo{GoModDir: dir}
			for _, line := range strings.Split(string(data), "\n") {
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "module ") {
					info.ModulePath = strings.Trim(strings.TrimSpace(strings.TrimPrefix(trimmed, "module ")), `"`)
					break
				}
			}
			if info.ModulePath == "" {
				return nil, fmt.Errorf("no module directive in %s", filepath.Join(dir, "go.mod"))
			}
			return info, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("no go.mod found")
		}
		dir = parent
	}
}

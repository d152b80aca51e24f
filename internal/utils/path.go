package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// DataFiles are the source files a data directory may contain.
var DataFiles = []string{"history.toml", "index.toml", "bookmarks.toml"}

// PathResolver finds the config and data directories for the binary.
type PathResolver struct {
	appName       string
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a resolver rooted at the running executable.
func NewPathResolver(appName string) (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		appName:       appName,
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     configDirFor(appName, homeDir),
	}
	log.Debugf("PathResolver: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

func configDirFor(appName, homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		return filepath.Join(homeDir, ".config", appName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		return filepath.Join(homeDir, ".config", appName)
	}
}

// DataDir resolves the directory holding the source files. Candidates, in order:
// the path as given (absolute or cwd-relative), next to the executable, and
// <configDir>/data. The first one containing any of DataFiles wins.
func (pr *PathResolver) DataDir(userPath string) string {
	candidates := []string{userPath}
	if !filepath.IsAbs(userPath) {
		candidates = append(candidates, filepath.Join(pr.executableDir, userPath))
	}
	candidates = append(candidates, filepath.Join(pr.configDir, "data"))

	for _, dir := range candidates {
		if isDataDir(dir) {
			log.Debugf("Found data directory: %s", dir)
			return dir
		}
		log.Debugf("Data directory candidate not valid: %s", dir)
	}
	return userPath
}

func isDataDir(dir string) bool {
	for _, name := range DataFiles {
		if FileExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

// ConfigPath returns a writable location for filename, falling back to
// ~/.<app> and the temp dir when the config dir is read-only.
func (pr *PathResolver) ConfigPath(filename string) string {
	dirs := []string{
		pr.configDir,
		filepath.Join(pr.homeDir, "."+pr.appName),
		filepath.Join(os.TempDir(), pr.appName),
	}
	for i, dir := range dirs {
		if err := EnsureDir(dir); err != nil || !writable(dir) {
			continue
		}
		if i > 0 {
			log.Warnf("Using fallback config location: %s", dir)
		}
		return filepath.Join(dir, filename)
	}
	return filepath.Join(os.TempDir(), filename)
}

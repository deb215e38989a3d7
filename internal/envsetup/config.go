package envsetup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPythonVersion   = "3.12.3"
	DefaultPipToolsVersion = "7.4.1"
	DefaultManifest        = "requirements.in"
	DefaultLockFile        = "requirements.txt"
)

// Config describes one bootstrap: which interpreter, which environment, and
// which manifests feed the lock and install steps. It is read from YAML.
type Config struct {
	PythonVersion   string   `yaml:"python_version"`
	EnvName         string   `yaml:"env_name"`
	EnvRoot         string   `yaml:"env_root"`
	Pyenv           string   `yaml:"pyenv"`
	PipToolsVersion string   `yaml:"pip_tools_version"`
	// Manifest and LockFile are resolved against WorkDir and must stay inside it.
	Manifest        string   `yaml:"manifest"`
	LockFile        string   `yaml:"lock_file"`
	WorkDir         string   `yaml:"work_dir"`
	Entry           []string `yaml:"entry"`
	// VerifyIgnore lists installed distributions that may exist outside the
	// lock, typically the packaging tools themselves.
	VerifyIgnore []string `yaml:"verify_ignore"`
}

func DefaultConfig() Config {
	return Config{
		PythonVersion:   DefaultPythonVersion,
		Pyenv:           "pyenv",
		PipToolsVersion: DefaultPipToolsVersion,
		Manifest:        DefaultManifest,
		LockFile:        DefaultLockFile,
		Entry:           []string{"python", "app.py"},
		VerifyIgnore: []string{
			"pip", "setuptools", "wheel", "pip-tools",
			"build", "click", "packaging", "pyproject-hooks", "tomli",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg.withDerived(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Dir(path)
	}
	return cfg.withDerived(), nil
}

func (c Config) withDerived() Config {
	if strings.TrimSpace(c.EnvName) == "" {
		c.EnvName = "venv-" + c.PythonVersion
	}
	if strings.TrimSpace(c.EnvRoot) == "" {
		c.EnvRoot = defaultEnvRoot()
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.PythonVersion) == "" {
		return fmt.Errorf("python_version is required")
	}
	if strings.TrimSpace(c.EnvName) == "" {
		return fmt.Errorf("env_name is required")
	}
	if strings.ContainsAny(c.EnvName, `/\`) {
		return fmt.Errorf("env_name %q must not contain path separators", c.EnvName)
	}
	if strings.TrimSpace(c.Manifest) == "" || strings.TrimSpace(c.LockFile) == "" {
		return fmt.Errorf("manifest and lock_file are required")
	}
	if len(c.Entry) == 0 {
		return fmt.Errorf("entry is required")
	}
	return nil
}

// EnvPath is the directory pyenv-virtualenv creates for EnvName.
func (c Config) EnvPath() string {
	return filepath.Join(c.EnvRoot, c.EnvName)
}

func (c Config) path(name string) string {
	if filepath.IsAbs(name) || c.WorkDir == "" {
		return name
	}
	return filepath.Join(c.WorkDir, name)
}

func defaultEnvRoot() string {
	if root := strings.TrimSpace(os.Getenv("PYENV_ROOT")); root != "" {
		return filepath.Join(root, "versions")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pyenv", "versions")
	}
	return filepath.Join(home, ".pyenv", "versions")
}

package envsetup

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// BinDir is where the environment keeps its interpreter and console scripts.
func BinDir(cfg Config) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(cfg.EnvPath(), "Scripts")
	}
	return filepath.Join(cfg.EnvPath(), "bin")
}

// EnvReady reports whether the environment already holds an interpreter.
func EnvReady(cfg Config) bool {
	for _, name := range []string{"python", "python3", "python.exe"} {
		if isExecutable(filepath.Join(BinDir(cfg), name)) {
			return true
		}
	}
	return false
}

// Activate points env at the isolated environment, the same edits the
// virtualenv activate script makes to a shell.
func Activate(env *Environ, cfg Config) {
	env.Set("VIRTUAL_ENV", cfg.EnvPath())
	env.Unset("PYTHONHOME")
	env.PrependPath(BinDir(cfg))
}

// ActivationScript returns POSIX shell lines that activate the environment
// when evaluated by the caller's shell.
func ActivationScript(cfg Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export VIRTUAL_ENV=%s\n", shellQuote(cfg.EnvPath()))
	b.WriteString("unset PYTHONHOME\n")
	fmt.Fprintf(&b, "export PATH=%s:\"$PATH\"\n", shellQuote(BinDir(cfg)))
	return b.String()
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

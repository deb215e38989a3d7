package envsetup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Environ is the variable set handed to every step. Activation edits it so
// later steps resolve tools inside the isolated environment.
type Environ struct {
	vars map[string]string
}

func NewEnviron(kv []string) *Environ {
	e := &Environ{vars: make(map[string]string, len(kv))}
	for _, pair := range kv {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		e.vars[k] = v
	}
	return e
}

func EnvironFromOS() *Environ {
	return NewEnviron(os.Environ())
}

func (e *Environ) Get(key string) string {
	return e.vars[key]
}

func (e *Environ) Set(key, value string) {
	e.vars[key] = value
}

func (e *Environ) Unset(key string) {
	delete(e.vars, key)
}

func (e *Environ) PrependPath(dir string) {
	cur := e.vars["PATH"]
	if cur == "" {
		e.vars["PATH"] = dir
		return
	}
	e.vars["PATH"] = dir + string(os.PathListSeparator) + cur
}

// Slice returns KEY=VALUE pairs in key order.
func (e *Environ) Slice() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e.vars[k])
	}
	return out
}

// LookPath resolves name against this Environ's PATH rather than the
// parent process's.
func (e *Environ) LookPath(name string) (string, bool) {
	if strings.ContainsRune(name, filepath.Separator) {
		return name, isExecutable(name)
	}
	for _, dir := range filepath.SplitList(e.vars["PATH"]) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return name, false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

package envsetup

import (
	"fmt"
	"sort"
	"strings"
)

// ParseFreeze reads `pip freeze` output into name -> version. Direct URL
// installs map to their URL; editable installs are skipped.
func ParseFreeze(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	for _, line := range logicalLines(string(raw)) {
		if strings.HasPrefix(line.text, "-") {
			continue
		}
		req, err := parseRequirement(line.text)
		if err != nil {
			return nil, fmt.Errorf("freeze line %d: %w", line.no, err)
		}
		if req.URL != "" {
			out[req.Name] = req.URL
			continue
		}
		v, ok := req.pinnedVersion()
		if !ok {
			return nil, fmt.Errorf("freeze line %d: %w: %s", line.no, ErrUnpinned, line.text)
		}
		out[req.Name] = v
	}
	return out, nil
}

// VerifyResult compares a lock to what is actually installed.
type VerifyResult struct {
	Missing    []string
	Mismatched []string
	Unexpected []string
}

func (r VerifyResult) OK() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0 && len(r.Unexpected) == 0
}

func (r VerifyResult) Error() string {
	var parts []string
	if len(r.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(r.Missing, ", "))
	}
	if len(r.Mismatched) > 0 {
		parts = append(parts, "version mismatch: "+strings.Join(r.Mismatched, ", "))
	}
	if len(r.Unexpected) > 0 {
		parts = append(parts, "not in lock: "+strings.Join(r.Unexpected, ", "))
	}
	return "installed packages differ from lock (" + strings.Join(parts, "; ") + ")"
}

// CompareInstalled checks the installed set equals the lock's closure.
// Entries carrying an environment marker may be absent. Names in ignore may
// be installed without being locked.
func CompareInstalled(lock Lock, installed map[string]string, ignore []string) VerifyResult {
	var res VerifyResult
	byName := map[string][]LockEntry{}
	var names []string
	for _, e := range lock.Entries {
		if _, ok := byName[e.Name]; !ok {
			names = append(names, e.Name)
		}
		byName[e.Name] = append(byName[e.Name], e)
	}
	for _, name := range names {
		entries := byName[name]
		got, ok := installed[name]
		if !ok {
			for _, e := range entries {
				if e.Marker == "" {
					res.Missing = append(res.Missing, name)
					break
				}
			}
			continue
		}
		var wants []string
		matched := false
		for _, e := range entries {
			want := e.Version
			if e.URL != "" {
				want = e.URL
			}
			wants = append(wants, want)
			if got == want {
				matched = true
			}
		}
		if !matched {
			res.Mismatched = append(res.Mismatched, fmt.Sprintf("%s (locked %s, installed %s)", name, strings.Join(wants, " | "), got))
		}
	}
	skip := map[string]bool{}
	for _, name := range ignore {
		skip[CanonicalName(name)] = true
	}
	for name := range installed {
		if _, locked := byName[name]; !locked && !skip[name] {
			res.Unexpected = append(res.Unexpected, name)
		}
	}
	sort.Strings(res.Missing)
	sort.Strings(res.Mismatched)
	sort.Strings(res.Unexpected)
	return res
}

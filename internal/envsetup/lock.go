package envsetup

import (
	"fmt"
	"sort"
	"strings"
)

// LockEntry is one pinned distribution. Exactly one of Version and URL is set.
type LockEntry struct {
	Name    string
	Version string
	URL     string
	Marker  string
}

func (e LockEntry) String() string {
	var s string
	if e.URL != "" {
		s = e.Name + " @ " + e.URL
	} else {
		s = e.Name + "==" + e.Version
	}
	if e.Marker != "" {
		s += " ; " + e.Marker
	}
	return s
}

// Lock is a fully pinned manifest. Options holds pip option lines such as
// --index-url in their original order.
type Lock struct {
	Options []string
	Entries []LockEntry
}

// ParseLock reads a compiled manifest. Comments, hashes and extras are
// dropped; every requirement must be pinned.
func ParseLock(raw []byte) (Lock, error) {
	var (
		lock    Lock
		seenOpt = map[string]bool{}
		byKey   = map[string]int{}
	)
	for _, line := range logicalLines(string(raw)) {
		if isEditable(line.text) {
			return Lock{}, fmt.Errorf("line %d: %w: editable install %s", line.no, ErrUnpinned, line.text)
		}
		if strings.HasPrefix(line.text, "-") {
			opt := whitespaceRun.ReplaceAllString(line.text, " ")
			if !seenOpt[opt] {
				seenOpt[opt] = true
				lock.Options = append(lock.Options, opt)
			}
			continue
		}
		req, err := parseRequirement(line.text)
		if err != nil {
			return Lock{}, fmt.Errorf("line %d: %w", line.no, err)
		}
		entry := LockEntry{Name: req.Name, URL: req.URL, Marker: req.Marker}
		if req.URL == "" {
			v, ok := req.pinnedVersion()
			if !ok {
				return Lock{}, fmt.Errorf("line %d: %w: %s", line.no, ErrUnpinned, line.text)
			}
			entry.Version = v
		}
		key := entry.Name + ";" + entry.Marker
		if idx, ok := byKey[key]; ok {
			prev := lock.Entries[idx]
			if prev.Version != entry.Version || prev.URL != entry.URL {
				return Lock{}, fmt.Errorf("line %d: %w: %s vs %s", line.no, ErrConflict, prev, entry)
			}
			continue
		}
		byKey[key] = len(lock.Entries)
		lock.Entries = append(lock.Entries, entry)
	}
	sort.SliceStable(lock.Entries, func(i, j int) bool {
		a, b := lock.Entries[i], lock.Entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Marker < b.Marker
	})
	return lock, nil
}

// Format renders the lock deterministically: options first, then one entry
// per line in name order, newline terminated.
func (l Lock) Format() []byte {
	var b strings.Builder
	for _, opt := range l.Options {
		b.WriteString(opt)
		b.WriteByte('\n')
	}
	for _, e := range l.Entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Lookup returns the entries for a canonical name.
func (l Lock) Lookup(name string) []LockEntry {
	name = CanonicalName(name)
	var out []LockEntry
	for _, e := range l.Entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// NormalizeLock parses and re-renders a compiled manifest. Equal inputs
// always produce byte-identical output.
func NormalizeLock(raw []byte) ([]byte, error) {
	lock, err := ParseLock(raw)
	if err != nil {
		return nil, err
	}
	return lock.Format(), nil
}

// isEditable reports -e/--editable lines, which install a working tree
// rather than a pinned release.
func isEditable(line string) bool {
	if strings.HasPrefix(line, "--") {
		flag, _, _ := strings.Cut(whitespaceRun.ReplaceAllString(line, " "), " ")
		flag, _, _ = strings.Cut(flag, "=")
		return flag == "--editable"
	}
	return strings.HasPrefix(line, "-e")
}

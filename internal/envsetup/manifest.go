package envsetup

import (
	"fmt"
	"strings"
)

// Constraint is one entry of an abstract manifest: a name and an optional
// loose version specifier.
type Constraint struct {
	Name   string
	Extras []string
	Spec   string
	URL    string
	Marker string
}

// ParseManifest reads an abstract manifest. Option lines (-r, -c,
// --index-url, -e) are not dependencies and are skipped.
func ParseManifest(raw []byte) ([]Constraint, error) {
	var out []Constraint
	for _, line := range logicalLines(string(raw)) {
		if strings.HasPrefix(line.text, "-") {
			continue
		}
		req, err := parseRequirement(line.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.no, err)
		}
		out = append(out, Constraint{
			Name:   req.Name,
			Extras: req.Extras,
			Spec:   req.Spec,
			URL:    req.URL,
			Marker: req.Marker,
		})
	}
	return out, nil
}

// CheckClosure verifies every manifest constraint is present in the lock
// and that exact pins in the manifest were honoured.
func CheckClosure(manifest []Constraint, lock Lock) error {
	var missing []string
	for _, c := range manifest {
		entries := lock.Lookup(c.Name)
		if len(entries) == 0 {
			if c.Marker != "" {
				continue
			}
			missing = append(missing, c.Name)
			continue
		}
		want, exact := requirement{Spec: c.Spec}.pinnedVersion()
		if !exact {
			continue
		}
		matched := false
		for _, e := range entries {
			if e.Version == want {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: manifest pins %s==%s, lock has %s", ErrConflict, c.Name, want, entries[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequirement, strings.Join(missing, ", "))
	}
	return nil
}

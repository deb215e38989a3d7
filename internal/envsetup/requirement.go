package envsetup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidRequirement = errors.New("invalid requirement")
	ErrUnpinned           = errors.New("requirement is not pinned to an exact version")
	ErrConflict           = errors.New("conflicting pins")
	ErrMissingRequirement = errors.New("manifest requirement missing from lock")
)

var (
	namePattern    = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	separatorRun   = regexp.MustCompile(`[-_.]+`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	inlineComment  = regexp.MustCompile(`(^|\s)#.*$`)
	hashOptionWord = regexp.MustCompile(`\s--hash[= ]\S+`)
)

// CanonicalName lower-cases a distribution name and folds runs of "-", "_"
// and "." into a single "-", so "Zope.Interface" and "zope_interface" match.
func CanonicalName(name string) string {
	return separatorRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// requirement is one parsed requirement line.
type requirement struct {
	Name   string
	Extras []string
	Spec   string
	URL    string
	Marker string
}

// pinnedVersion returns the exact version when Spec is a single == or ===
// clause without wildcards.
func (r requirement) pinnedVersion() (string, bool) {
	spec := strings.TrimSpace(r.Spec)
	if strings.Contains(spec, ",") {
		return "", false
	}
	var v string
	switch {
	case strings.HasPrefix(spec, "==="):
		v = strings.TrimSpace(spec[3:])
	case strings.HasPrefix(spec, "=="):
		v = strings.TrimSpace(spec[2:])
	default:
		return "", false
	}
	if v == "" || strings.Contains(v, "*") {
		return "", false
	}
	return v, true
}

func parseRequirement(line string) (requirement, error) {
	var req requirement
	rest := strings.TrimSpace(line)

	if i := strings.Index(rest, ";"); i >= 0 {
		req.Marker = whitespaceRun.ReplaceAllString(strings.TrimSpace(rest[i+1:]), " ")
		rest = strings.TrimSpace(rest[:i])
	}

	m := namePattern.FindStringSubmatch(rest)
	if m == nil {
		return requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, line)
	}
	req.Name = CanonicalName(m[1])
	rest = strings.TrimSpace(rest[len(m[1]):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return requirement{}, fmt.Errorf("%w: unterminated extras in %q", ErrInvalidRequirement, line)
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				req.Extras = append(req.Extras, CanonicalName(extra))
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		req.URL = strings.TrimSpace(rest[1:])
		if req.URL == "" {
			return requirement{}, fmt.Errorf("%w: empty url in %q", ErrInvalidRequirement, line)
		}
		return req, nil
	}
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	if rest != "" && !strings.ContainsAny(rest[:1], "=<>!~") {
		return requirement{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidRequirement, rest, line)
	}
	req.Spec = whitespaceRun.ReplaceAllString(rest, "")
	return req, nil
}

// logicalLines joins backslash continuations and strips comments and hash
// options, yielding non-empty lines with their starting line number.
func logicalLines(raw string) []numberedLine {
	var (
		out     []numberedLine
		pending strings.Builder
		startNo int
	)
	for i, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if pending.Len() == 0 {
			startNo = i + 1
		}
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(trimmed, `\`) {
			pending.WriteString(strings.TrimSuffix(trimmed, `\`))
			pending.WriteString(" ")
			continue
		}
		pending.WriteString(trimmed)
		text := pending.String()
		pending.Reset()

		text = inlineComment.ReplaceAllString(text, "")
		text = hashOptionWord.ReplaceAllString(" "+text, "")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, numberedLine{no: startNo, text: text})
	}
	if pending.Len() > 0 {
		if text := strings.TrimSpace(inlineComment.ReplaceAllString(pending.String(), "")); text != "" {
			out = append(out, numberedLine{no: startNo, text: text})
		}
	}
	return out
}

type numberedLine struct {
	no   int
	text string
}

// Package template parses and renders notification patterns that use named
// `{name}` placeholders. Literal braces are written as `{{` and `}}`. A
// placeholder may carry a `!conv` or `:spec` suffix; only the name is
// significant and the value is always substituted verbatim.
package template

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is returned when a pattern is malformed or references a
// name outside the allow-list.
type ValidationError struct {
	Field   string
	Pattern string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s pattern %q: %s", e.Field, e.Pattern, e.Reason)
	}
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

// RenderError is returned when a referenced placeholder has no value.
type RenderError struct {
	Missing string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("missing value for placeholder %q", e.Missing)
}

type segment struct {
	literal     string
	placeholder string
	isParam     bool
}

func parse(pattern string) ([]segment, error) {
	var (
		segs []segment
		buf  strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			segs = append(segs, segment{literal: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '{':
			if i+1 < len(pattern) && pattern[i+1] == '{' {
				buf.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(pattern[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unmatched '{' at offset %d", i)
			}
			field := pattern[i+1 : i+1+end]
			if strings.ContainsRune(field, '{') {
				return nil, fmt.Errorf("nested '{' at offset %d", i)
			}
			name := fieldName(field)
			if name == "" {
				return nil, fmt.Errorf("empty placeholder at offset %d", i)
			}
			flush()
			segs = append(segs, segment{placeholder: name, isParam: true})
			i += end + 1
		case '}':
			if i+1 < len(pattern) && pattern[i+1] == '}' {
				buf.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

func fieldName(field string) string {
	if idx := strings.IndexAny(field, "!:"); idx >= 0 {
		field = field[:idx]
	}
	return strings.TrimSpace(field)
}

// Placeholders returns the distinct names referenced by pattern in order of
// first appearance.
func Placeholders(pattern string) ([]string, error) {
	segs, err := parse(pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	for _, s := range segs {
		if !s.isParam {
			continue
		}
		if _, ok := seen[s.placeholder]; ok {
			continue
		}
		seen[s.placeholder] = struct{}{}
		names = append(names, s.placeholder)
	}
	return names, nil
}

// Validate checks that pattern is well formed and only references names in
// permitted.
func Validate(field, pattern string, permitted []string) error {
	names, err := Placeholders(pattern)
	if err != nil {
		return &ValidationError{Field: field, Pattern: pattern, Reason: err.Error()}
	}

	allowed := make(map[string]struct{}, len(permitted))
	for _, p := range permitted {
		allowed[p] = struct{}{}
	}

	var unknown []string
	for _, n := range names {
		if _, ok := allowed[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{
			Field:   field,
			Pattern: pattern,
			Reason:  fmt.Sprintf("placeholders not permitted: %s", strings.Join(unknown, ", ")),
		}
	}
	return nil
}

// Render substitutes params into pattern.
func Render(pattern string, params map[string]string) (string, error) {
	segs, err := parse(pattern)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, s := range segs {
		if !s.isParam {
			out.WriteString(s.literal)
			continue
		}
		v, ok := params[s.placeholder]
		if !ok {
			return "", &RenderError{Missing: s.placeholder}
		}
		out.WriteString(v)
	}
	return out.String(), nil
}

package installer

import "strings"

// RenderTemplate performs logic-less mustache-style "{{var}}" interpolation
// (spec.md §4.9 "Template rendering"): no conditionals, no loops, just
// substitution of declared template_vars. An unrecognised "{{name}}" is left
// untouched rather than erroring, matching the teacher's lenient rendering
// of unknown placeholders in generated workflow YAML.
func RenderTemplate(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	var b strings.Builder
	b.Grow(len(content))
	rest := content
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start
		b.WriteString(rest[:start])
		name := strings.TrimSpace(rest[start+2 : end])
		if val, ok := vars[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(rest[start : end+2])
		}
		rest = rest[end+2:]
	}
	return b.String()
}

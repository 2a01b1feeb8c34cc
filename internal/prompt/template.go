// Package prompt loads and renders prompt template files. Templates use
// {{variable}} placeholders filled from the triggering message.
package prompt

import (
	"regexp"
	"sort"
)

var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template is a parsed prompt file. Immutable after Parse.
type Template struct {
	Path      string
	Content   string
	Variables []string // distinct variable names referenced, sorted
}

// Parse extracts the referenced variable names from content.
func Parse(path, content string) *Template {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range varPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	sort.Strings(vars)
	return &Template{Path: path, Content: content, Variables: vars}
}

// Render substitutes {{var}} tokens from vars. A token with no entry in vars
// is left verbatim in the output rather than treated as an error, so a
// misspelled variable degrades visibly instead of failing the hook.
func (t *Template) Render(vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(t.Content, func(token string) string {
		name := token[2 : len(token)-2]
		if val, ok := vars[name]; ok {
			return val
		}
		return token
	})
}

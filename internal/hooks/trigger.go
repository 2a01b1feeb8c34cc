package hooks

import (
	"regexp"
	"strings"
)

// TriggerType enumerates the trigger variants. The set is closed; config
// validation rejects anything else at load time.
type TriggerType string

const (
	TriggerAny      TriggerType = "any"
	TriggerPrefix   TriggerType = "prefix"
	TriggerContains TriggerType = "contains"
	TriggerRegex    TriggerType = "regex"
	TriggerMention  TriggerType = "mention"
)

// Trigger is a compiled trigger. Read-only after load; the compiled pattern
// is never mutated, so Match is safe from any number of goroutines.
type Trigger struct {
	Type      TriggerType
	Prefix    string
	Substring string
	Pattern   *regexp.Regexp
}

// MatchResult carries what the trigger extracted for template rendering.
type MatchResult struct {
	// Content is the message text as {{content}} should see it. Prefix
	// triggers strip the matched prefix and one following space, so a
	// "!echo hello" message renders as "hello". All other variants pass
	// the content through unchanged.
	Content string
	// Groups holds regex capture groups (group 0 is the whole match).
	// Exposed to templates as {{match_0}}, {{match_1}}, ...
	Groups []string
}

// Match reports whether the trigger fires for event. botID is the bot's own
// user ID, consulted by mention triggers; an empty botID never matches a
// mention. Pure: no I/O, deterministic for identical inputs.
func (t Trigger) Match(event MessageEvent, botID string) (MatchResult, bool) {
	switch t.Type {
	case TriggerAny:
		return MatchResult{Content: event.Content}, true

	case TriggerPrefix:
		if !strings.HasPrefix(event.Content, t.Prefix) {
			return MatchResult{}, false
		}
		rest := strings.TrimPrefix(event.Content, t.Prefix)
		rest = strings.TrimPrefix(rest, " ")
		return MatchResult{Content: rest}, true

	case TriggerContains:
		if !strings.Contains(event.Content, t.Substring) {
			return MatchResult{}, false
		}
		return MatchResult{Content: event.Content}, true

	case TriggerRegex:
		groups := t.Pattern.FindStringSubmatch(event.Content)
		if groups == nil {
			return MatchResult{}, false
		}
		return MatchResult{Content: event.Content, Groups: groups}, true

	case TriggerMention:
		if botID == "" {
			return MatchResult{}, false
		}
		for _, id := range event.Mentions {
			if id == botID {
				return MatchResult{Content: event.Content}, true
			}
		}
		return MatchResult{}, false
	}
	return MatchResult{}, false
}

// Package hooks is the core of hookline: declarative hooks that match inbound
// chat messages, render a prompt, run a processor, and deliver the result.
// The package owns the compiled hook set, the trigger/filter gates, and the
// engine that drives them over the gateway feed.
package hooks

import "time"

// MessageEvent is an immutable snapshot of one inbound message from the
// gateway feed. The engine owns it for the duration of processing; it is
// copied by value into work items.
type MessageEvent struct {
	MessageID   string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorRoles []string
	Content     string
	Timestamp   time.Time
	Attachments []string // attachment URLs
	Mentions    []string // mentioned user IDs
}

// Package discord implements the gateway feed and message sender on top of
// the Discord Bot API.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/hookline/internal/hooks"
)

// Feed owns the gateway connection and converts MESSAGE_CREATE events into
// engine events. Reconnection and backoff are discordgo's responsibility; the
// feed only surfaces the state transitions.
type Feed struct {
	session   *discordgo.Session
	handler   func(hooks.MessageEvent)
	onReady   func(botID string)
	botUserID string
}

// NewFeed creates a feed for the given bot token. The connection is not
// opened until Start.
func NewFeed(token string) (*Feed, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Feed{session: session}, nil
}

// Session exposes the underlying session so the sender can share the
// connection.
func (f *Feed) Session() *discordgo.Session {
	return f.session
}

// OnMessage registers the event handler. Must be called before Start.
func (f *Feed) OnMessage(fn func(hooks.MessageEvent)) {
	f.handler = fn
}

// OnReady registers a callback invoked with the bot's own user ID once the
// gateway identifies. Must be called before Start.
func (f *Feed) OnReady(fn func(botID string)) {
	f.onReady = fn
}

// Start opens the gateway connection. An authentication failure surfaces
// here and is fatal; transient disconnects after a successful open are
// retried by discordgo and only logged.
func (f *Feed) Start(_ context.Context) error {
	f.session.AddHandler(f.handleMessage)
	f.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) {
		slog.Info("discord gateway connected")
	})
	f.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		slog.Warn("discord gateway disconnected, reconnecting")
	})
	f.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		slog.Info("discord gateway resumed")
	})

	if err := f.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := f.session.User("@me")
	if err != nil {
		f.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	f.botUserID = user.ID
	if f.onReady != nil {
		f.onReady(user.ID)
	}

	slog.Info("discord feed ready", "username", user.Username, "id", user.ID)
	return nil
}

// Stop closes the gateway connection.
func (f *Feed) Stop() error {
	slog.Info("stopping discord feed")
	return f.session.Close()
}

// handleMessage converts an incoming gateway message to an engine event.
func (f *Feed) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == f.botUserID || m.Author.Bot {
		return
	}
	if f.handler == nil {
		return
	}

	event := hooks.MessageEvent{
		MessageID:  m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
	}
	// Role data is only present on guild messages.
	if m.Member != nil {
		event.AuthorRoles = m.Member.Roles
	}
	for _, att := range m.Attachments {
		event.Attachments = append(event.Attachments, att.URL)
	}
	for _, user := range m.Mentions {
		event.Mentions = append(event.Mentions, user.ID)
	}

	slog.Debug("discord message received",
		"sender_id", event.AuthorID,
		"channel_id", event.ChannelID,
		"message_id", event.MessageID,
	)

	f.handler(event)
}

package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Discord caps messages at 2000 characters; longer results are chunked.
const maxMessageLen = 2000

// Sender delivers outbound text over the Discord REST API. Sends are
// throttled through a token bucket to stay under the platform rate limit
// even when many hooks complete at once.
type Sender struct {
	session *discordgo.Session
	limiter *rate.Limiter
}

func NewSender(session *discordgo.Session) *Sender {
	return &Sender{
		session: session,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
	}
}

// SendToChannel sends text to a channel, splitting into multiple messages
// when over the length limit.
func (s *Sender) SendToChannel(ctx context.Context, channelID, text string) error {
	if channelID == "" {
		return fmt.Errorf("empty channel ID for discord send")
	}

	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxMessageLen {
			// Prefer to break at a newline in the back half of the chunk.
			cutAt := maxMessageLen
			if idx := strings.LastIndexByte(text[:maxMessageLen], '\n'); idx > maxMessageLen/2 {
				cutAt = idx + 1
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("send throttle: %w", err)
		}
		if _, err := s.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
	}
	return nil
}

// SendDirect opens (or reuses) a DM channel with the user and sends text.
func (s *Sender) SendDirect(ctx context.Context, userID, text string) error {
	channel, err := s.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel with %s: %w", userID, err)
	}
	return s.SendToChannel(ctx, channel.ID, text)
}

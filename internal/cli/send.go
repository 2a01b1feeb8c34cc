package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/hookline/internal/config"
	"github.com/nextlevelbuilder/hookline/internal/discord"
)

var sendChannel string

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a one-shot message to a channel",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendChannel, "channel", "", "target channel ID (default $DISCORD_CHANNEL_ID)")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	channelID := sendChannel
	if channelID == "" {
		channelID = cfg.ChannelID
	}
	if channelID == "" {
		return fmt.Errorf("no target channel: pass --channel or set DISCORD_CHANNEL_ID")
	}

	// One-shot REST send; no gateway connection needed.
	feed, err := discord.NewFeed(cfg.DiscordToken)
	if err != nil {
		return err
	}
	sender := discord.NewSender(feed.Session())
	return sender.SendToChannel(cmd.Context(), channelID, strings.Join(args, " "))
}

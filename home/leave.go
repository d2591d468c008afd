package home

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "leave",
		Description: "Stop playing and leave the voice channel",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	}, handleLeave)
}

func handleLeave(event *events.ApplicationCommandInteractionCreate) error {
	d, err := current()
	if err != nil {
		return err
	}
	guildID, ok := guildOf(event)
	if !ok {
		return replyText(event, MsgGuildOnly, true)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = d.Registry.Leave(ctx, guildID)
	if errors.Is(err, proc.ErrNotConnected) {
		return replyText(event, MsgNotInVoice, true)
	}
	if err != nil {
		return err
	}
	return replyText(event, MsgLeft, false)
}

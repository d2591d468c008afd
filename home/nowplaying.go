package home

import (
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "nowplaying",
		Description: "Show the song that is playing",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	}, handleNowPlaying)
}

func handleNowPlaying(event *events.ApplicationCommandInteractionCreate) error {
	d, err := current()
	if err != nil {
		return err
	}
	guildID, ok := guildOf(event)
	if !ok {
		return replyText(event, MsgGuildOnly, true)
	}

	session, err := d.Registry.Get(guildID)
	if errors.Is(err, proc.ErrNotConnected) {
		return replyText(event, MsgNotInVoice, true)
	}
	if err != nil {
		return err
	}

	t := session.Current()
	if t == nil {
		return replyText(event, MsgNotPlayingOne, true)
	}
	return reply(event, proc.NowPlayingMessage(t))
}

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
		Name:        "remove",
		Description: "Remove a song from the queue",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionInt{
				Name:        "n",
				Description: "Position in the queue, as shown by /queue",
				Required:    true,
			},
		},
	}, handleRemove)
}

func removeReply(t *proc.Track, err error) (proc.Message, error) {
	switch {
	case err == nil:
		return proc.TrackMessage(MsgRemoved, t), nil
	case errors.Is(err, proc.ErrEmptyQueue):
		return proc.Message{Content: MsgNotPlayingAny, Ephemeral: true}, nil
	case errors.Is(err, proc.ErrInvalidIndex):
		return proc.Message{Content: MsgInvalidSongNumber, Ephemeral: true}, nil
	}
	return proc.Message{}, err
}

func handleRemove(event *events.ApplicationCommandInteractionCreate) error {
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

	msg, err := removeReply(session.Remove(event.SlashCommandInteractionData().Int("n")))
	if err != nil {
		return err
	}
	return reply(event, msg)
}

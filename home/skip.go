package home

import (
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "skip",
		Description: "Skip the current song, or several",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionInt{
				Name:        "n",
				Description: "How many songs to skip (default 1)",
			},
		},
	}, handleSkip)
}

// skipReply picks the answer for skipping n songs, count of which were removed.
func skipReply(n int, first *proc.Track, count int) (proc.Message, bool) {
	if count == 0 || first == nil {
		return proc.Message{Content: MsgNotPlayingAny, Ephemeral: true}, false
	}
	if n <= 1 {
		return proc.TrackMessage(MsgSkippedOne, first), true
	}
	return proc.Message{Content: fmt.Sprintf(MsgSkippedMany, count)}, true
}

func handleSkip(event *events.ApplicationCommandInteractionCreate) error {
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

	n := 1
	if v, ok := event.SlashCommandInteractionData().OptInt("n"); ok {
		n = v
	}

	first, count := session.Skip(n)
	msg, _ := skipReply(n, first, count)
	return reply(event, msg)
}

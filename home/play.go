package home

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/proc/audio"
	"github.com/leeineian/muse/sys"
)

const playTimeout = 2 * time.Minute

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "play",
		Description: "Play a song or add it to the queue",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:         "song",
				Description:  "A link or something to search for",
				Required:     true,
				Autocomplete: true,
			},
			discord.ApplicationCommandOptionChannel{
				Name:         "voice_channel",
				Description:  "Voice channel to join instead of yours",
				ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildVoice, discord.ChannelTypeGuildStageVoice},
			},
		},
	}, handlePlay)

	sys.RegisterAutocompleteHandler("play", handlePlayAutocomplete)
}

// joinErrorMessage maps a join failure caused by the invoker to a reply.
func joinErrorMessage(err error, req proc.JoinRequest) (string, bool) {
	switch {
	case errors.Is(err, proc.ErrNoVoiceChannel):
		return MsgJoinOrSpecify, true
	case errors.Is(err, proc.ErrNotAVoiceChannel):
		return fmt.Sprintf(MsgNotAVoiceChannel, req.ChannelID), true
	}
	return "", false
}

func handlePlay(event *events.ApplicationCommandInteractionCreate) error {
	d, err := current()
	if err != nil {
		return err
	}
	guildID, ok := guildOf(event)
	if !ok {
		return replyText(event, MsgGuildOnly, true)
	}

	data := event.SlashCommandInteractionData()
	song := data.String("song")
	req := proc.JoinRequest{
		GuildID:         guildID,
		UserID:          event.User().ID,
		NotifyChannelID: event.Channel().ID(),
	}
	if ch, ok := data.OptChannel("voice_channel"); ok {
		req.ChannelID = ch.ID
	}

	// Reject bad channels before deferring so the answer can be ephemeral.
	if _, err := d.Registry.Get(guildID); err != nil {
		if _, err := d.Registry.VoiceChannelFor(req); err != nil {
			if msg, ok := joinErrorMessage(err, req); ok {
				return replyText(event, msg, true)
			}
			return err
		}
	}

	if err := event.DeferCreateMessage(false); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	session, _, err := d.Registry.JoinOrGet(ctx, req)
	if err != nil {
		if msg, ok := joinErrorMessage(err, req); ok {
			return edit(event, proc.Message{Content: msg})
		}
		return err
	}

	meta, err := d.Resolver.Resolve(ctx, song)
	if errors.Is(err, audio.ErrNoResults) {
		return edit(event, proc.Message{Content: fmt.Sprintf(MsgNoResults, song)})
	}
	if err != nil {
		return err
	}

	track := proc.NewTrack(meta, event.User().ID)
	started, err := session.Enqueue(ctx, track)
	if err != nil {
		return err
	}

	format := MsgQueued
	if started {
		format = MsgNowPlaying
	}
	return edit(event, proc.TrackMessage(format, track))
}

func handlePlayAutocomplete(event *events.AutocompleteInteractionCreate) {
	d, err := current()
	if err != nil || d.Searcher == nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	focused := event.Data.Focused()
	if focused.Name != "song" {
		_ = event.AutocompleteResult(nil)
		return
	}

	suggestions := d.Searcher.Suggest(context.Background(), focused.String())
	choices := make([]discord.AutocompleteChoice, 0, len(suggestions))
	for _, s := range suggestions {
		choices = append(choices, discord.AutocompleteChoiceString{Name: s.Name, Value: s.URL})
	}
	if err := event.AutocompleteResult(choices); err != nil {
		sys.LogDebug("Failed to send autocomplete results: %v", err)
	}
}

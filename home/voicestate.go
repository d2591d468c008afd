package home

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/sys"
)

func init() {
	sys.RegisterVoiceStateUpdateHandler(onVoiceStateUpdate)
}

type voiceLookup interface {
	VoiceChannelOf(guildID, userID snowflake.ID) (snowflake.ID, bool)
}

// lostVoice reports whether a disconnect event still holds when it is
// handled. Events are handled off the gateway goroutine, so a disconnect left
// over from /leave can arrive after a new /play joined again; the cache
// already shows the bot in a channel then.
func lostVoice(dir voiceLookup, guildID, botID snowflake.ID) bool {
	_, inVoice := dir.VoiceChannelOf(guildID, botID)
	return !inVoice
}

// onVoiceStateUpdate drops the session when the bot is disconnected by
// someone else.
func onVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	botID := event.Client().ID()
	if event.VoiceState.UserID != botID || event.VoiceState.ChannelID != nil {
		return
	}
	d, err := current()
	if err != nil {
		return
	}
	guildID := event.VoiceState.GuildID
	if !lostVoice(NewDirectory(event.Client()), guildID, botID) {
		sys.LogVoiceDebug("Ignoring stale disconnect in %s", guildID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d.Registry.Drop(ctx, guildID)
}

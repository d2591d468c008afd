package proc

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/muse/sys"
)

const notifyTimeout = 10 * time.Second

// Notifier posts a now playing message whenever a connection starts a track.
type Notifier struct {
	chat      Chat
	channelID snowflake.ID
	guildName string
	lookup    func(id uuid.UUID) (*Track, bool)
}

func NewNotifier(chat Chat, channelID snowflake.ID, guildName string, lookup func(id uuid.UUID) (*Track, bool)) *Notifier {
	return &Notifier{
		chat:      chat,
		channelID: channelID,
		guildName: guildName,
		lookup:    lookup,
	}
}

// OnTrackStart acts only when exactly one track is reported.
func (n *Notifier) OnTrackStart(started []Handle) {
	if len(started) != 1 || n.chat == nil {
		return
	}

	t, ok := n.lookup(started[0].ID())
	if !ok {
		// Removed before the event was delivered.
		sys.LogVoiceDebug("Track %s started without metadata in %s", started[0].ID(), n.guildName)
		return
	}
	if t.Title != "" {
		sys.LogVoiceDebug(sys.MsgVoiceNowPlaying, t.Title, n.guildName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if _, err := n.chat.Send(ctx, n.channelID, NowPlayingMessage(t)); err != nil {
		sys.LogError(sys.MsgVoiceNotifyFailed, n.guildName, err)
	}
}

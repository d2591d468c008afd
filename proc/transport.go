package proc

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// Handle refers to one track inside a transport queue.
type Handle interface {
	// ID is the ID of the Track the handle was created for.
	ID() uuid.UUID
	Stop() error
}

// Conn is a live voice connection with its own play queue. Element 0 of the
// queue is the track being played.
type Conn interface {
	// Enqueue appends t. Playback starts if the queue was empty.
	Enqueue(ctx context.Context, t *Track) (Handle, error)
	CurrentQueue() []Handle
	// ModifyQueue replaces the queue with the result of fn, atomically with
	// respect to playback advancing.
	ModifyQueue(fn func(queue []Handle) []Handle)
	// OnTrackStart registers fn for every track-start event, delivered in order.
	// fn must not be called while the queue is locked.
	OnTrackStart(fn func(started []Handle))
}

// Transport opens and closes per-guild voice connections.
type Transport interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) (Conn, error)
	Leave(ctx context.Context, guildID snowflake.ID) error
}

// Directory answers guild and channel questions from the gateway cache.
type Directory interface {
	GuildName(guildID snowflake.ID) string
	// VoiceChannelOf returns the voice channel userID is connected to.
	VoiceChannelOf(guildID, userID snowflake.ID) (snowflake.ID, bool)
	IsVoiceChannel(channelID snowflake.ID) bool
}

package proc

import "errors"

// Error kinds shared by the session core and the command layer.
var (
	// ErrNoVoiceChannel means no channel was given and the invoker is not in one.
	ErrNoVoiceChannel = errors.New("no voice channel to join")
	// ErrNotAVoiceChannel means an explicit channel is not a voice channel.
	ErrNotAVoiceChannel = errors.New("not a voice channel")
	// ErrNotConnected means the guild has no session.
	ErrNotConnected = errors.New("not connected to a voice channel")
	// ErrInvalidIndex means a remove index falls outside the pending range.
	ErrInvalidIndex = errors.New("invalid queue index")
	// ErrEmptyQueue means nothing is playing.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrTransportUnavailable means the voice transport could not be acquired.
	ErrTransportUnavailable = errors.New("voice transport unavailable")
	// ErrStopFailed wraps transport stop errors. It is logged, never returned to callers.
	ErrStopFailed = errors.New("failed to stop track")
)

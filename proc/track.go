package proc

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// Metadata describes a resolved source. Every field is optional.
type Metadata struct {
	Title     string
	URL       string
	Artist    string
	Channel   string
	Thumbnail string
	// Date is the upload date as reported by the source, normally YYYYMMDD.
	Date     string
	Duration time.Duration
}

// Track is one playable item. Its metadata never changes after creation; the
// handle is attached when the track enters a transport queue.
type Track struct {
	ID          uuid.UUID
	RequestedBy snowflake.ID
	Metadata

	handle Handle
}

func NewTrack(meta Metadata, requestedBy snowflake.ID) *Track {
	return &Track{
		ID:          uuid.New(),
		RequestedBy: requestedBy,
		Metadata:    meta,
	}
}

// Author is the artist, else the channel, else "".
func (t *Track) Author() string {
	if t.Artist != "" {
		return t.Artist
	}
	return t.Channel
}

// Handle returns the transport handle, or nil before the track was enqueued.
func (t *Track) Handle() Handle {
	return t.handle
}

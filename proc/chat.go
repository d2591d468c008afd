package proc

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Message is a chat message independent of the rendering API.
type Message struct {
	Content   string
	Summary   *Summary
	Controls  []Control
	Ephemeral bool
}

// Summary is the rich block rendered under a message.
type Summary struct {
	Title  string
	URL    string
	Author string
	Image  string
	Footer string
	Color  int
}

// Control is a button identified by an opaque id.
type Control struct {
	ID       string
	Label    string
	Disabled bool
}

type MessageRef struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// Chat sends and edits messages and collects button clicks on them.
type Chat interface {
	Send(ctx context.Context, channelID snowflake.ID, msg Message) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, msg Message) error
	// Collect starts listening for clicks on ref made by userID.
	Collect(ref MessageRef, userID snowflake.ID) Clicks
}

// Clicks yields control ids clicked on one message.
type Clicks interface {
	// Next blocks until a click arrives (ok is true) or timeout passes or ctx ends.
	Next(ctx context.Context, timeout time.Duration) (id string, ok bool)
	Stop()
}

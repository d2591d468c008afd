package home

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

// Chat posts and edits messages through the REST client.
type Chat struct {
	client *bot.Client
}

func NewChat(client *bot.Client) *Chat {
	return &Chat{client: client}
}

func (c *Chat) Send(ctx context.Context, channelID snowflake.ID, msg proc.Message) (proc.MessageRef, error) {
	m, err := c.client.Rest.CreateMessage(channelID, renderCreate(msg), rest.WithCtx(ctx))
	if err != nil {
		return proc.MessageRef{}, err
	}
	return proc.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

func (c *Chat) Edit(ctx context.Context, ref proc.MessageRef, msg proc.Message) error {
	_, err := c.client.Rest.UpdateMessage(ref.ChannelID, ref.MessageID, renderUpdate(msg), rest.WithCtx(ctx))
	return err
}

// Collect listens for button clicks on ref. Clicks by anyone but userID are
// acknowledged and dropped.
func (c *Chat) Collect(ref proc.MessageRef, userID snowflake.ID) proc.Clicks {
	ch, stop := bot.NewEventCollector(c.client, func(e *events.ComponentInteractionCreate) bool {
		switch routeClick(ref.MessageID, userID, e.Message.ID, e.User().ID) {
		case clickAccept:
			return true
		case clickDismiss:
			if err := e.DeferUpdateMessage(); err != nil {
				sys.LogDebug("Failed to acknowledge click: %v", err)
			}
		}
		return false
	})
	return &clicks{incoming: ch, stop: stop}
}

type clickRoute int

const (
	clickIgnore clickRoute = iota
	clickAccept
	clickDismiss
)

func routeClick(messageID, userID, gotMessage, gotUser snowflake.ID) clickRoute {
	switch {
	case gotMessage != messageID:
		return clickIgnore
	case gotUser != userID:
		return clickDismiss
	default:
		return clickAccept
	}
}

type clicks struct {
	incoming <-chan *events.ComponentInteractionCreate
	stop     func()
	once     sync.Once
}

// Next acknowledges the click so the button does not show a failure; the
// browser edits the message itself.
func (c *clicks) Next(ctx context.Context, timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-c.incoming:
		if !ok || ev == nil {
			return "", false
		}
		if err := ev.DeferUpdateMessage(); err != nil {
			sys.LogDebug("Failed to acknowledge click: %v", err)
		}
		return ev.Data.CustomID(), true
	case <-timer.C:
	case <-ctx.Done():
	}
	return "", false
}

// Stop removes the listener. The event manager holds its lock while a click
// is being delivered, so pending deliveries are drained until the channel closes.
func (c *clicks) Stop() {
	c.once.Do(func() {
		go func() {
			for range c.incoming {
			}
		}()
		c.stop()
	})
}

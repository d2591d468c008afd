package home

import (
	"context"
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "queue",
		Description: "Show the queue",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionInt{
				Name:        "page",
				Description: "Page to start on (default 1)",
			},
		},
	}, handleQueue)
}

func browserOptions(cfg *sys.Config) proc.BrowserOptions {
	if cfg == nil {
		return proc.BrowserOptions{}
	}
	return proc.BrowserOptions{PageSize: cfg.QueuePageSize, Timeout: cfg.BrowserTimeout}
}

func handleQueue(event *events.ApplicationCommandInteractionCreate) error {
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

	page := 1
	if v, ok := event.SlashCommandInteractionData().OptInt("page"); ok {
		page = v
	}

	post := func(_ context.Context, m proc.Message) (proc.MessageRef, error) {
		if err := reply(event, m); err != nil {
			return proc.MessageRef{}, err
		}
		if m.Ephemeral {
			return proc.MessageRef{}, nil
		}
		msg, err := event.Client().Rest.GetInteractionResponse(event.ApplicationID(), event.Token())
		if err != nil {
			return proc.MessageRef{}, err
		}
		return proc.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
	}
	return openQueue(context.Background(), NewChat(event.Client()), event.User().ID, session.Snapshot(), page, browserOptions(d.Config), post)
}

// openQueue answers an empty queue with an ephemeral notice and browses
// anything else starting at the 1-based page.
func openQueue(ctx context.Context, chat proc.Chat, userID snowflake.ID, snapshot []*proc.Track, page int, opts proc.BrowserOptions, post func(context.Context, proc.Message) (proc.MessageRef, error)) error {
	if len(snapshot) == 0 {
		_, err := post(ctx, proc.Message{Content: proc.MsgQueueEmpty, Ephemeral: true})
		return err
	}
	return proc.NewBrowser(chat, userID, snapshot, page-1, opts).Run(ctx, post)
}

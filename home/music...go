package home

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/proc/audio"
	"github.com/leeineian/muse/sys"
)

const (
	MsgNotInVoice        = "I'm not in a voice channel."
	MsgJoinOrSpecify     = "I'm not in a voice channel. Join or specify one."
	MsgNotAVoiceChannel  = "<#%s> is not a voice channel."
	MsgNotPlayingAny     = "I'm not playing any songs."
	MsgNotPlayingOne     = "I'm not playing a song."
	MsgInvalidSongNumber = "Invalid song number."
	MsgNowPlaying        = "Now playing *%s*."
	MsgQueued            = "Queued *%s*."
	MsgSkippedOne        = "Skipped *%s*."
	MsgSkippedMany       = "Skipped %d songs."
	MsgRemoved           = "Removed *%s*."
	MsgLeft              = "Left voice channel."
	MsgNoResults         = "I couldn't find anything for *%s*."
	MsgGuildOnly         = "This command only works in servers."
)

// Resolver turns a /play argument into track metadata.
type Resolver interface {
	Resolve(ctx context.Context, query string) (proc.Metadata, error)
}

// Searcher feeds /play autocomplete.
type Searcher interface {
	Suggest(ctx context.Context, query string) []audio.Suggestion
}

// Deps are the collaborators the music commands run against.
type Deps struct {
	Registry *proc.Registry
	Resolver Resolver
	Searcher Searcher
	Config   *sys.Config
}

var (
	depsMu sync.RWMutex
	deps   Deps
)

// Setup must run before the gateway opens.
func Setup(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

var errNotReady = errors.New("music commands used before Setup")

func current() (Deps, error) {
	depsMu.RLock()
	defer depsMu.RUnlock()
	if deps.Registry == nil {
		return Deps{}, errNotReady
	}
	return deps, nil
}

func guildOf(event *events.ApplicationCommandInteractionCreate) (snowflake.ID, bool) {
	id := event.GuildID()
	if id == nil {
		return 0, false
	}
	return *id, true
}

// --- Rendering ---

func summaryText(s *proc.Summary) string {
	text := s.Title
	if text == "" {
		text = "Unknown title"
	}
	if s.URL != "" {
		text = fmt.Sprintf("[%s](%s)", text, s.URL)
	}
	text = "### " + text
	if s.Author != "" {
		text += "\n" + s.Author
	}
	if s.Footer != "" {
		text += "\n-# " + s.Footer
	}
	return text
}

func layout(m proc.Message) []discord.LayoutComponent {
	parts := []discord.ContainerSubComponent{discord.NewTextDisplay(m.Content)}

	if m.Summary != nil {
		parts = append(parts,
			discord.NewSeparator(discord.SeparatorSpacingSizeSmall).WithDivider(true),
			discord.NewTextDisplay(summaryText(m.Summary)),
		)
		if m.Summary.Image != "" {
			parts = append(parts, discord.NewMediaGallery(discord.MediaGalleryItem{
				Media: discord.UnfurledMediaItem{URL: m.Summary.Image},
			}))
		}
	}

	if len(m.Controls) > 0 {
		buttons := make([]discord.InteractiveComponent, 0, len(m.Controls))
		for _, c := range m.Controls {
			buttons = append(buttons, discord.NewButton(discord.ButtonStyleSecondary, c.Label, c.ID, "", 0).WithDisabled(c.Disabled))
		}
		parts = append(parts, discord.NewActionRow(buttons...))
	}

	container := discord.NewContainer(parts...)
	if m.Summary != nil && m.Summary.Color != 0 {
		container = container.WithAccentColor(m.Summary.Color)
	}
	return []discord.LayoutComponent{container}
}

func renderCreate(m proc.Message) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		SetEphemeral(m.Ephemeral).
		AddComponents(layout(m)...).
		Build()
}

func renderUpdate(m proc.Message) discord.MessageUpdate {
	return discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		AddComponents(layout(m)...).
		Build()
}

func reply(event *events.ApplicationCommandInteractionCreate, m proc.Message) error {
	return event.CreateMessage(renderCreate(m))
}

func replyText(event *events.ApplicationCommandInteractionCreate, content string, ephemeral bool) error {
	return reply(event, proc.Message{Content: content, Ephemeral: ephemeral})
}

// edit replaces a deferred response.
func edit(event *events.ApplicationCommandInteractionCreate, m proc.Message) error {
	_, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), renderUpdate(m))
	return err
}

package home

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

const (
	MsgRegistered    = "Registered %d commands."
	MsgNotAuthorized = "You are not allowed to use this command."
)

func init() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "register",
		Description:              "Re-register slash commands (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	}, handleRegister)
}

// mayRegister lets any administrator in when OWNER_IDS is empty.
func mayRegister(cfg *sys.Config, userID snowflake.ID) bool {
	if cfg == nil || len(cfg.OwnerIDs) == 0 {
		return true
	}
	return cfg.IsOwner(userID)
}

func handleRegister(event *events.ApplicationCommandInteractionCreate) error {
	d, err := current()
	if err != nil {
		return err
	}
	if !mayRegister(d.Config, event.User().ID) {
		return replyText(event, MsgNotAuthorized, true)
	}

	if err := event.DeferCreateMessage(true); err != nil {
		return err
	}

	guildID := ""
	if d.Config != nil {
		guildID = d.Config.GuildID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := sys.RegisterCommands(ctx, event.Client(), guildID, true)
	if err != nil {
		return err
	}
	return edit(event, proc.Message{Content: fmt.Sprintf(MsgRegistered, n)})
}

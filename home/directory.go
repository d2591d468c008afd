package home

import (
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Directory answers guild and channel lookups from the gateway cache.
type Directory struct {
	client *bot.Client
}

func NewDirectory(client *bot.Client) *Directory {
	return &Directory{client: client}
}

func (d *Directory) GuildName(guildID snowflake.ID) string {
	if guild, ok := d.client.Caches.Guild(guildID); ok {
		return guild.Name
	}
	return guildID.String()
}

func (d *Directory) VoiceChannelOf(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	vs, ok := d.client.Caches.VoiceState(guildID, userID)
	if !ok || vs.ChannelID == nil {
		return 0, false
	}
	return *vs.ChannelID, true
}

func (d *Directory) IsVoiceChannel(channelID snowflake.ID) bool {
	ch, ok := d.client.Caches.Channel(channelID)
	if !ok {
		return false
	}
	return isVoiceType(ch.Type())
}

func isVoiceType(t discord.ChannelType) bool {
	return t == discord.ChannelTypeGuildVoice || t == discord.ChannelTypeGuildStageVoice
}

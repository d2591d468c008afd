package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// MsgGenericFailure is shown to the user when a handler returns an error.
const MsgGenericFailure = "There was an error."

// CommandHandler answers one slash command. A returned error is logged and
// reported to the invoker as a generic failure.
type CommandHandler func(event *events.ApplicationCommandInteractionCreate) error

// SafeGo runs a function in a new goroutine with panic recovery
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// --- Global State & Setup ---

var StartupTime = time.Now()

var (
	registryMu               sync.RWMutex
	commands                 = []discord.ApplicationCommandCreate{}
	commandHandlers          = map[string]CommandHandler{}
	autocompleteHandlers     = map[string]func(event *events.AutocompleteInteractionCreate){}
	voiceStateUpdateHandlers []func(event *events.GuildVoiceStateUpdate)
)

// --- Bot Initialization ---

// CreateClient creates a disgo client wired to the loader's dispatchers.
// Extra options are appended last so callers can add voice configuration.
func CreateClient(cfg *Config, extra ...bot.ConfigOpt) (*bot.Client, error) {
	opts := []bot.ConfigOpt{
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildVoiceStates,
			),
			gateway.WithPresenceOpts(
				gateway.WithListeningActivity("/play"),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onAutocompleteInteraction),
		bot.WithEventListenerFunc(onVoiceStateUpdate),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 50,
					IdleConnTimeout:     90 * time.Second,
				},
			}),
		),
	}
	return disgo.New(cfg.Token, append(opts, extra...)...)
}

// --- Command & Handler Registration ---

func RegisterCommand(cmd discord.SlashCommandCreate, handler CommandHandler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	commands = append(commands, cmd)
	commandHandlers[cmd.CommandName()] = handler
}

func RegisterAutocompleteHandler(cmdName string, handler func(event *events.AutocompleteInteractionCreate)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	autocompleteHandlers[cmdName] = handler
}

func RegisterVoiceStateUpdateHandler(handler func(event *events.GuildVoiceStateUpdate)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	voiceStateUpdateHandlers = append(voiceStateUpdateHandlers, handler)
}

// Commands returns a copy of every registered command definition.
func Commands() []discord.ApplicationCommandCreate {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]discord.ApplicationCommandCreate(nil), commands...)
}

// --- Command Syncing Logic ---

func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RegisterCommands pushes the command set to Discord when it changed since the
// last run, or always when force is set. It returns how many commands were pushed.
func RegisterCommands(ctx context.Context, client *bot.Client, guildIDStr string, force bool) (int, error) {
	cmds := Commands()

	currentMode := "guild"
	if guildIDStr == "" {
		currentMode = "global"
	}
	LogLoader(MsgLoaderSyncCommands, strings.ToUpper(currentMode))

	currentHash := calculateCommandHash(cmds)
	lastHash, _ := GetBotConfig(ctx, "last_cmd_hash")
	lastMode, _ := GetBotConfig(ctx, "last_reg_mode")
	lastGuildID, _ := GetBotConfig(ctx, "last_guild_id")

	if !force && currentHash != "" && currentHash == lastHash && currentMode == lastMode && lastGuildID == guildIDStr {
		LogLoader(MsgLoaderUpToDate, currentHash[:8])
		return 0, nil
	}

	var created []discord.ApplicationCommand
	if currentMode == "global" {
		LogLoader(MsgLoaderProdStarting)
		var err error
		created, err = client.Rest.SetGlobalCommands(client.ApplicationID, cmds)
		if err != nil {
			return 0, fmt.Errorf(MsgLoaderProdFail, err)
		}
		for _, cmd := range created {
			LogLoader(MsgLoaderProdRegistered, cmd.Name())
		}
		clearGuildCommands(client, lastGuildID)
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return 0, fmt.Errorf("invalid GUILD_ID: %w", err)
		}

		LogLoader(MsgLoaderDevStarting, guildIDStr)
		created, err = client.Rest.SetGuildCommands(client.ApplicationID, guildID, cmds)
		if err != nil {
			return 0, fmt.Errorf(MsgLoaderDevFail, err)
		}
		for _, cmd := range created {
			LogLoader(MsgLoaderDevRegistered, cmd.Name())
		}

		if lastMode == "global" {
			LogLoader(MsgLoaderDevGlobalClear)
			if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{}); err != nil {
				LogWarn("Failed to clear global commands: %v", err)
			}
		}
		if lastGuildID != guildIDStr {
			clearGuildCommands(client, lastGuildID)
		}
	}

	_ = SetBotConfig(ctx, "last_reg_mode", currentMode)
	_ = SetBotConfig(ctx, "last_guild_id", guildIDStr)
	if currentHash != "" {
		_ = SetBotConfig(ctx, "last_cmd_hash", currentHash)
	}
	return len(created), nil
}

func clearGuildCommands(client *bot.Client, guildIDStr string) {
	if guildIDStr == "" {
		return
	}
	id, err := snowflake.Parse(guildIDStr)
	if err != nil {
		return
	}
	if cmds, err := client.Rest.GetGuildCommands(client.ApplicationID, id, false); err == nil && len(cmds) > 0 {
		LogLoader(MsgLoaderCleanup, guildIDStr)
		_, _ = client.Rest.SetGuildCommands(client.ApplicationID, id, []discord.ApplicationCommandCreate{})
	}
}

// --- Event Handlers ---

func onReady(event *events.Ready) {
	LogInfo(MsgBotReady, event.User.Username, event.User.ID.String(), os.Getpid(), time.Since(StartupTime).Milliseconds())
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	name := event.Data.CommandName()
	registryMu.RLock()
	h, ok := commandHandlers[name]
	registryMu.RUnlock()
	if !ok {
		LogWarn(MsgLoaderUnknownCommand, name)
		return
	}

	SafeGo(func() { runCommand(event, name, h) })
}

// runCommand is the error boundary for a single invocation.
func runCommand(event *events.ApplicationCommandInteractionCreate, name string, h CommandHandler) {
	user := User(event.User().Username, event.User().ID)
	LogInfo(MsgLoaderCommandRun, user, name)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return h(event)
	}()
	if err == nil {
		return
	}

	LogError(MsgLoaderCommandError, name, user, err)
	if rerr := ReplyError(event, MsgGenericFailure); rerr != nil {
		LogError(MsgLoaderReportError, rerr)
	}
}

// ReplyError sends an ephemeral message, falling back to a followup when the
// interaction was already acknowledged.
func ReplyError(event *events.ApplicationCommandInteractionCreate, content string) error {
	msg := discord.NewMessageCreateBuilder().SetContent(content).SetEphemeral(true).Build()
	if err := event.CreateMessage(msg); err == nil {
		return nil
	}
	_, err := event.Client().Rest.CreateFollowupMessage(event.ApplicationID(), event.Token(), msg)
	return err
}

func onAutocompleteInteraction(event *events.AutocompleteInteractionCreate) {
	registryMu.RLock()
	h, ok := autocompleteHandlers[event.Data.CommandName]
	registryMu.RUnlock()
	if ok {
		SafeGo(func() { h(event) })
	}
}

func onVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	registryMu.RLock()
	handlers := append([]func(*events.GuildVoiceStateUpdate){}, voiceStateUpdateHandlers...)
	registryMu.RUnlock()
	for _, h := range handlers {
		SafeGo(func() { h(event) })
	}
}

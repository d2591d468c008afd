package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/godave/golibdave"

	"github.com/leeineian/muse/home"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/proc/audio"
	"github.com/leeineian/muse/sys"
)

const (
	pidFile         = ".bot.pid"
	shutdownTimeout = 15 * time.Second
)

func main() {
	// 0. Recover from panics (LogFatal uses panic to ensure defers run)
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	flag.Parse()

	// 1. Logger first so config errors are visible
	sys.InitLogger(*silent, true)
	defer sys.CloseLogger()

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}

	// 2. Database (command hash bookkeeping)
	if err := sys.InitDatabase(context.Background(), cfg.DatabasePath); err != nil {
		sys.LogFatal("Failed to initialize database: %v", err)
	}
	defer sys.CloseDatabase()

	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	// 3. Single instance per working directory
	unlock, err := lockPID(pidFile)
	if err != nil {
		sys.LogFatal("Failed to lock PID file: %v", err)
	}
	defer unlock()

	// 4. Run bot (blocks until shutdown signal)
	if err := run(cfg, *silent, *skipReg); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

func run(cfg *sys.Config, silent bool, skipReg bool) error {
	// 1. Global context that responds to shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Discord client with DAVE-capable voice
	client, err := sys.CreateClient(cfg,
		bot.WithVoiceManagerConfigOpts(
			voice.WithDaveSessionCreateFunc(golibdave.NewSession),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	// 3. Playback stack
	resolver := audio.NewResolver(cfg.YtdlpPath, cfg.SearchRate)
	registry := proc.NewRegistry(
		audio.NewTransport(client, resolver),
		home.NewDirectory(client),
		home.NewChat(client),
	)
	home.Setup(home.Deps{
		Registry: registry,
		Resolver: resolver,
		Searcher: audio.NewSearcher(),
		Config:   cfg,
	})

	// 4. Command registration
	if !skipReg {
		if _, err := sys.RegisterCommands(ctx, client, cfg.GuildID, false); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo("Skipping command registration as requested.")
	}

	// 5. Connect to Gateway
	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	registry.Shutdown(shutdownCtx)

	if self, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, self.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}
	return nil
}

// lockPID takes an exclusive flock on path and writes our PID into it.
// A second instance fails fast instead of fighting over the voice sessions.
func lockPID(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, fmt.Errorf("another instance holds %s", path)
		}
		return nil, err
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d", os.Getpid())
	_ = f.Sync()

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(path)
	}, nil
}

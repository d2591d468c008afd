package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// --- Globals & Styles ---

var (
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
	debugColor = color.New(color.FgHiBlack)

	componentColors = map[string]*color.Color{
		"DATABASE": color.New(color.FgHiBlack),
		"LOADER":   color.New(color.FgBlue),
		"VOICE":    color.New(color.FgMagenta),
		"QUEUE":    color.New(color.FgCyan),
	}

	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	logFile *os.File
	logMu   sync.Mutex
)

// LevelFatal sits above error so the handler can tag it.
const LevelFatal = slog.LevelError + 4

func init() {
	InitLogger(false, false)
}

// InitLogger installs the colored handler as the slog default.
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("DEBUG"), "true") {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	if LogToFile {
		logName := GetProjectName() + ".log"
		if exePath, err := os.Executable(); err == nil {
			logName = filepath.Base(exePath) + ".log"
		}

		f, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			logFile = f
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	Logger = slog.New(NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	}))
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

func CloseLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// LogFatal logs and panics; main recovers the panic and exits after defers ran.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), LevelFatal, msg)
	panic(msg)
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogLoader(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "loader"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogVoiceDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogQueue(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), slog.String("component", "queue"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{w: w, opts: opts, mu: &sync.Mutex{}}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	levelStr, levelColor := levelStyle(r.Level)

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	timeStr := r.Time
	if timeStr.IsZero() {
		timeStr = time.Now()
	}
	fmt.Fprintf(h.w, "%s", timeStr.Format(DefaultTimeFormat))

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(getComponentColor(component), fmt.Sprintf("[%s] %s", component, r.Message)))
		return nil
	}

	fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, fmt.Sprintf("[%s] %s", levelStr, r.Message)))
	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(name string) slog.Handler       { return h }

// --- Formatting Helpers ---

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= LevelFatal:
		return "FATAL", fatalColor
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}

func getComponentColor(name string) *color.Color {
	if c, ok := componentColors[name]; ok {
		return c
	}
	return color.New(color.FgCyan)
}

// colorizeWithResets re-applies the outer color after every reset embedded in text.
func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	return c.Sprint(strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq))
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{w: w, re: regexp.MustCompile(`\x1b\[[0-9;]*m`)}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	_, err = s.w.Write(s.re.ReplaceAll(p, nil))
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad  = "Failed to load config: %v"
	MsgConfigMissingToken  = "DISCORD_TOKEN is not set in .env file"
	MsgDatabaseInitSuccess = "Database initialized successfully"
	MsgDatabaseTableError  = "Failed to create table: %w"
	MsgDatabasePragmaError = "Failed to set pragma %s: %w"
	MsgBotStarting         = "Starting %s..."
	MsgBotReady            = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown         = "Shutting down %s..."
	MsgBotRegisterFail     = "Command registration failed: %v"
	MsgGenericError        = "%v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands   = "Syncing %s commands..."
	MsgLoaderUpToDate       = "Commands are up to date. (Hash: %s)"
	MsgLoaderProdStarting   = "Registering global commands..."
	MsgLoaderProdFail       = "failed to register global commands: %w"
	MsgLoaderProdRegistered = "Registered global command: %s"
	MsgLoaderDevStarting    = "Registering guild commands for %s..."
	MsgLoaderDevFail        = "failed to register guild commands: %w"
	MsgLoaderDevRegistered  = "Registered guild command: %s"
	MsgLoaderDevGlobalClear = "Clearing global commands left over from production mode..."
	MsgLoaderCleanup        = "Clearing commands from previous guild %s..."
	MsgLoaderPanicRecovered = "Recovered from panic: %v"
	MsgLoaderCommandRun     = "%s executed `%s`."
	MsgLoaderCommandError   = "Error while executing `%s` for %s: %v"
	MsgLoaderReportError    = "Error while reporting error: %v"
	MsgLoaderUnknownCommand = "No handler registered for `%s`"

	// --- Voice & Queue ---
	MsgVoiceJoining      = "Joining channel %s in %s"
	MsgVoiceJoinFailed   = "Failed to connect to voice in %s: %v"
	MsgVoiceLeft         = "Left %s."
	MsgVoiceDisconnected = "Bot disconnected by external event in %s"
	MsgVoiceShutdown     = "Shutting down voice sessions..."
	MsgVoiceStopFailed   = "Error while stopping track: %v"
	MsgVoiceNotifyFailed = "Failed to send now playing message in %s: %v"
	MsgVoiceNowPlaying   = "Now playing `%s` in %s."
	MsgVoicePlayback     = "Playback finished: %s"
	MsgVoiceStreamError  = "Stream for %s ended with error: %v"
	MsgQueueEnqueued     = "Enqueued `%s` in %s."
	MsgQueueSkipped      = "Skipped %d track(s) in %s."
	MsgQueueRemoved      = "Removed `%s` from %s."
	MsgBrowserUnknownID  = "Unknown interaction `%s`."
	MsgBrowserEditFailed = "Failed to update queue browser: %v"
)

// User returns the log form of a user: "name [id]".
func User(name string, id fmt.Stringer) string {
	return fmt.Sprintf("%s [%s]", name, id)
}

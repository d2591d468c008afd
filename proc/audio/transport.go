package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

var (
	// ErrTrackFinished is returned when stopping a track that already ended.
	ErrTrackFinished = errors.New("track already finished")
	ErrConnClosed    = errors.New("voice connection closed")
	ErrStream        = errors.New("stream failed")
)

// Source produces Opus frames for a track URL.
type Source interface {
	Stream(ctx context.Context, url string, push func(frame []byte)) error
}

// sink is the part of a voice connection the player talks to.
type sink interface {
	SetOpusFrameProvider(p voice.OpusFrameProvider)
	Speaking(ctx context.Context, on bool)
	Close(ctx context.Context)
}

type voiceSink struct {
	conn voice.Conn
}

func (s voiceSink) SetOpusFrameProvider(p voice.OpusFrameProvider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogVoice("Recovered from panic in SetOpusFrameProvider: %v", r)
		}
	}()
	s.conn.SetOpusFrameProvider(p)
}

func (s voiceSink) Speaking(ctx context.Context, on bool) {
	if on {
		s.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)
		return
	}
	s.conn.SetSpeaking(ctx, 0)
}

func (s voiceSink) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// Transport keeps one voice connection and player per guild.
type Transport struct {
	source Source
	dial   func(ctx context.Context, guildID, channelID snowflake.ID) (sink, error)

	mu    sync.Mutex
	conns map[snowflake.ID]*guildConn
}

// NewTransport opens voice connections through the client's voice manager.
func NewTransport(client *bot.Client, source Source) *Transport {
	return newTransport(source, func(ctx context.Context, guildID, channelID snowflake.ID) (sink, error) {
		conn := client.VoiceManager.CreateConn(guildID)
		if err := conn.Open(ctx, channelID, false, false); err != nil {
			conn.Close(ctx)
			return nil, err
		}
		return voiceSink{conn: conn}, nil
	})
}

func newTransport(source Source, dial func(ctx context.Context, guildID, channelID snowflake.ID) (sink, error)) *Transport {
	return &Transport{
		source: source,
		dial:   dial,
		conns:  make(map[snowflake.ID]*guildConn),
	}
}

func (t *Transport) Join(ctx context.Context, guildID, channelID snowflake.ID) (proc.Conn, error) {
	s, err := t.dial(ctx, guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("open voice connection: %w", err)
	}

	c := newGuildConn(guildID, s, t.source)
	t.mu.Lock()
	old := t.conns[guildID]
	t.conns[guildID] = c
	t.mu.Unlock()

	if old != nil {
		old.close(ctx)
	}
	go c.run()
	return c, nil
}

// Leave stops playback and closes the guild's connection. Leaving a guild
// without a connection is a no-op.
func (t *Transport) Leave(ctx context.Context, guildID snowflake.ID) error {
	t.mu.Lock()
	c, ok := t.conns[guildID]
	delete(t.conns, guildID)
	t.mu.Unlock()

	if ok {
		c.close(ctx)
	}
	return nil
}

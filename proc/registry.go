package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/sys"
)

// JoinRequest describes where a session should be opened.
type JoinRequest struct {
	GuildID snowflake.ID
	// UserID is the invoker; their voice channel is used when ChannelID is 0.
	UserID    snowflake.ID
	ChannelID snowflake.ID
	// NotifyChannelID receives now playing messages.
	NotifyChannelID snowflake.ID
}

type pendingJoin struct {
	done chan struct{}
}

// Registry maps guilds to their sessions. At most one session exists per guild;
// concurrent joins for the same guild wait for the first one to finish.
type Registry struct {
	transport Transport
	directory Directory
	chat      Chat

	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
	pending  map[snowflake.ID]*pendingJoin
}

func NewRegistry(transport Transport, directory Directory, chat Chat) *Registry {
	return &Registry{
		transport: transport,
		directory: directory,
		chat:      chat,
		sessions:  make(map[snowflake.ID]*Session),
		pending:   make(map[snowflake.ID]*pendingJoin),
	}
}

// Get returns the guild's session, or ErrNotConnected.
func (r *Registry) Get(guildID snowflake.ID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[guildID]; ok {
		return s, nil
	}
	return nil, ErrNotConnected
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// JoinOrGet returns the guild's session, opening a voice connection first if
// there is none. created is true when this call opened it.
func (r *Registry) JoinOrGet(ctx context.Context, req JoinRequest) (s *Session, created bool, err error) {
	for {
		r.mu.Lock()
		if s, ok := r.sessions[req.GuildID]; ok {
			r.mu.Unlock()
			return s, false, nil
		}

		if p, ok := r.pending[req.GuildID]; ok {
			r.mu.Unlock()
			select {
			case <-p.done:
				continue
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}

		if r.transport == nil {
			r.mu.Unlock()
			return nil, false, ErrTransportUnavailable
		}

		p := &pendingJoin{done: make(chan struct{})}
		r.pending[req.GuildID] = p
		r.mu.Unlock()

		s, err = r.open(ctx, req)

		r.mu.Lock()
		delete(r.pending, req.GuildID)
		if err == nil {
			r.sessions[req.GuildID] = s
		}
		r.mu.Unlock()
		close(p.done)

		if err != nil {
			return nil, false, err
		}
		return s, true, nil
	}
}

// VoiceChannelFor picks the channel a join would use: the explicit one when
// set, otherwise the invoker's current voice channel.
func (r *Registry) VoiceChannelFor(req JoinRequest) (snowflake.ID, error) {
	if req.ChannelID != 0 {
		if !r.directory.IsVoiceChannel(req.ChannelID) {
			return 0, ErrNotAVoiceChannel
		}
		return req.ChannelID, nil
	}
	id, ok := r.directory.VoiceChannelOf(req.GuildID, req.UserID)
	if !ok {
		return 0, ErrNoVoiceChannel
	}
	return id, nil
}

func (r *Registry) open(ctx context.Context, req JoinRequest) (*Session, error) {
	channelID, err := r.VoiceChannelFor(req)
	if err != nil {
		return nil, err
	}

	name := r.directory.GuildName(req.GuildID)
	sys.LogVoice(sys.MsgVoiceJoining, channelID, name)

	conn, err := r.transport.Join(ctx, req.GuildID, channelID)
	if err != nil {
		sys.LogVoice(sys.MsgVoiceJoinFailed, name, err)
		return nil, fmt.Errorf("join %s: %w", channelID, err)
	}

	s := newSession(req.GuildID, channelID, name, conn)
	n := NewNotifier(r.chat, req.NotifyChannelID, name, s.lookup)
	conn.OnTrackStart(n.OnTrackStart)
	return s, nil
}

// Leave closes the guild's connection and forgets its session. Browsers
// already running keep working on their own snapshot.
func (r *Registry) Leave(ctx context.Context, guildID snowflake.ID) error {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	if !ok {
		r.mu.Unlock()
		return ErrNotConnected
	}
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if err := r.transport.Leave(ctx, guildID); err != nil {
		return fmt.Errorf("leave %s: %w", s.GuildName, err)
	}
	sys.LogVoice(sys.MsgVoiceLeft, s.GuildName)
	return nil
}

// Drop forgets the guild's session after the connection was lost elsewhere.
func (r *Registry) Drop(ctx context.Context, guildID snowflake.ID) {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	r.mu.Unlock()
	if !ok {
		return
	}

	sys.LogVoice(sys.MsgVoiceDisconnected, s.GuildName)
	if err := r.Leave(ctx, guildID); err != nil && !errors.Is(err, ErrNotConnected) {
		sys.LogWarn("Cleanup after disconnect failed: %v", err)
	}
}

// Shutdown leaves every guild in parallel.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	ids := make([]snowflake.ID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	sys.LogVoice(sys.MsgVoiceShutdown)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(guildID snowflake.ID) {
			defer wg.Done()
			if err := r.Leave(ctx, guildID); err != nil && !errors.Is(err, ErrNotConnected) {
				sys.LogWarn("Failed to leave %s: %v", guildID, err)
			}
		}(id)
	}
	wg.Wait()
}

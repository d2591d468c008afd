package proc

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/muse/sys"
)

// Session is one guild's voice connection and queue. Its mutex is the only
// exclusion scope for the queue: one mutation at a time per guild.
type Session struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	GuildName string

	mu    sync.Mutex
	queue *queue
}

func newSession(guildID, channelID snowflake.ID, guildName string, conn Conn) *Session {
	return &Session{
		GuildID:   guildID,
		ChannelID: channelID,
		GuildName: guildName,
		queue:     newQueue(conn),
	}
}

// Enqueue appends t and reports whether it started playing right away.
func (s *Session) Enqueue(ctx context.Context, t *Track) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started, err := s.queue.enqueue(ctx, t)
	if err != nil {
		return false, err
	}
	sys.LogQueue(sys.MsgQueueEnqueued, t.Title, s.GuildName)
	return started, nil
}

// Skip removes up to n tracks from the front. It returns the first removed
// track and the number removed; zero means nothing was playing.
func (s *Session) Skip(n int) (*Track, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, count := s.queue.skip(n)
	if count > 0 {
		sys.LogQueue(sys.MsgQueueSkipped, count, s.GuildName)
	}
	return first, count
}

// Remove drops the pending track at 1-based position index.
func (s *Session) Remove(index int) (*Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.queue.remove(index)
	if err != nil {
		return nil, err
	}
	sys.LogQueue(sys.MsgQueueRemoved, t.Title, s.GuildName)
	return t, nil
}

func (s *Session) Current() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.current()
}

// Snapshot returns a copy of the whole queue; element 0 is the current track.
func (s *Session) Snapshot() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.snapshot()
}

func (s *Session) lookup(id uuid.UUID) (*Track, bool) {
	return s.queue.lookup(id)
}

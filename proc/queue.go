package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/leeineian/muse/sys"
)

// queue maps a connection's handle queue back to Track metadata. The order
// always comes from the connection, so element 0 is whatever the transport is
// playing. Callers hold the owning Session's lock for every method except lookup.
type queue struct {
	conn Conn

	// tracks is read by the notifier without the session lock.
	tracks sync.Map // uuid.UUID -> *Track
}

func newQueue(conn Conn) *queue {
	return &queue{conn: conn}
}

func (q *queue) lookup(id uuid.UUID) (*Track, bool) {
	v, ok := q.tracks.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Track), true
}

// enqueue appends t and reports whether it became the current track.
func (q *queue) enqueue(ctx context.Context, t *Track) (bool, error) {
	q.prune(q.conn.CurrentQueue())

	// Stored first so a synchronous track-start event can resolve it.
	q.tracks.Store(t.ID, t)
	h, err := q.conn.Enqueue(ctx, t)
	if err != nil {
		q.tracks.Delete(t.ID)
		return false, err
	}
	t.handle = h

	handles := q.conn.CurrentQueue()
	return len(handles) > 0 && handles[0] == h, nil
}

// skip pops up to n tracks from the front, stopping each before it is
// detached. It returns the first removed track and how many were removed.
func (q *queue) skip(n int) (*Track, int) {
	if n < 1 {
		n = 1
	}

	var removed []Handle
	q.conn.ModifyQueue(func(handles []Handle) []Handle {
		k := min(n, len(handles))
		for _, h := range handles[:k] {
			stopHandle(h)
			removed = append(removed, h)
		}
		return append([]Handle(nil), handles[k:]...)
	})

	var first *Track
	for i, h := range removed {
		if t, ok := q.lookup(h.ID()); ok && i == 0 {
			first = t
		}
		q.tracks.Delete(h.ID())
	}
	return first, len(removed)
}

// remove drops the pending track at 1-based position index. The current
// track (position 0) cannot be removed this way.
func (q *queue) remove(index int) (*Track, error) {
	var (
		removed Handle
		err     error
	)
	q.conn.ModifyQueue(func(handles []Handle) []Handle {
		switch {
		case len(handles) == 0:
			err = ErrEmptyQueue
			return handles
		case index < 1 || index >= len(handles):
			err = fmt.Errorf("%w: %d (pending tracks: %d)", ErrInvalidIndex, index, len(handles)-1)
			return handles
		}

		removed = handles[index]
		stopHandle(removed)

		out := make([]Handle, 0, len(handles)-1)
		out = append(out, handles[:index]...)
		return append(out, handles[index+1:]...)
	})
	if err != nil {
		return nil, err
	}

	t, ok := q.lookup(removed.ID())
	q.tracks.Delete(removed.ID())
	if !ok {
		return nil, fmt.Errorf("%w: no metadata for handle %s", ErrInvalidIndex, removed.ID())
	}
	return t, nil
}

func (q *queue) current() *Track {
	handles := q.conn.CurrentQueue()
	q.prune(handles)
	if len(handles) == 0 {
		return nil
	}
	t, _ := q.lookup(handles[0].ID())
	return t
}

// snapshot copies the queue in transport order.
func (q *queue) snapshot() []*Track {
	handles := q.conn.CurrentQueue()
	q.prune(handles)
	out := make([]*Track, 0, len(handles))
	for _, h := range handles {
		if t, ok := q.lookup(h.ID()); ok {
			out = append(out, t)
		}
	}
	return out
}

// prune forgets tracks the transport no longer holds, such as those that
// finished on their own.
func (q *queue) prune(handles []Handle) {
	live := make(map[uuid.UUID]struct{}, len(handles))
	for _, h := range handles {
		live[h.ID()] = struct{}{}
	}
	q.tracks.Range(func(k, _ any) bool {
		if _, ok := live[k.(uuid.UUID)]; !ok {
			q.tracks.Delete(k)
		}
		return true
	})
}

// stopHandle never fails the caller; removal proceeds regardless.
func stopHandle(h Handle) {
	if err := h.Stop(); err != nil {
		sys.LogError(sys.MsgVoiceStopFailed, errors.Join(ErrStopFailed, err))
	}
}

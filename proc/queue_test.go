package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

func fill(t *testing.T, s *Session, names ...string) []*Track {
	t.Helper()
	out := make([]*Track, 0, len(names))
	for _, n := range names {
		tr := track(n)
		if _, err := s.Enqueue(context.Background(), tr); err != nil {
			t.Fatalf("Enqueue(%s): %v", n, err)
		}
		out = append(out, tr)
	}
	return out
}

func TestEnqueue(t *testing.T) {
	s, _ := newTestSession()
	ctx := context.Background()

	a := track("A")
	started, err := s.Enqueue(ctx, a)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !started {
		t.Errorf("first track should start playing")
	}
	if a.Handle() == nil || a.Handle().ID() != a.ID {
		t.Errorf("handle not attached to track")
	}

	for _, n := range []string{"B", "C"} {
		started, err := s.Enqueue(ctx, track(n))
		if err != nil {
			t.Fatalf("Enqueue(%s): %v", n, err)
		}
		if started {
			t.Errorf("Enqueue(%s) reported started while A plays", n)
		}
	}

	if got := titles(s.Snapshot()); !equalStrings(got, []string{"A", "B", "C"}) {
		t.Errorf("Snapshot = %v, want [A B C]", got)
	}
	if cur := s.Current(); cur != a {
		t.Errorf("Current = %v, want A", cur)
	}
}

func TestEnqueueTransportError(t *testing.T) {
	s, conn := newTestSession()
	conn.enqueueErr = errBoom

	tr := track("A")
	if _, err := s.Enqueue(context.Background(), tr); !errors.Is(err, errBoom) {
		t.Fatalf("Enqueue error = %v, want %v", err, errBoom)
	}
	if _, ok := s.lookup(tr.ID); ok {
		t.Errorf("metadata kept for a track the transport rejected")
	}
	if s.Current() != nil {
		t.Errorf("Current should be nil")
	}
}

func TestSkip(t *testing.T) {
	tests := []struct {
		name      string
		queue     []string
		n         int
		wantCount int
		wantFirst string
		wantLeft  []string
	}{
		{"one", []string{"A", "B", "C"}, 1, 1, "A", []string{"B", "C"}},
		{"two", []string{"A", "B", "C"}, 2, 2, "A", []string{"C"}},
		{"exact", []string{"A", "B", "C"}, 3, 3, "A", []string{}},
		{"more than queue", []string{"A", "B"}, 5, 2, "A", []string{}},
		{"zero means one", []string{"A", "B"}, 0, 1, "A", []string{"B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, conn := newTestSession()
			tracks := fill(t, s, tt.queue...)

			first, count := s.Skip(tt.n)
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
			if first == nil || first.Title != tt.wantFirst {
				t.Errorf("first = %v, want %s", first, tt.wantFirst)
			}
			if got := titles(s.Snapshot()); !equalStrings(got, tt.wantLeft) {
				t.Errorf("Snapshot = %v, want %v", got, tt.wantLeft)
			}

			stopped := conn.stoppedIDs()
			if len(stopped) != tt.wantCount {
				t.Fatalf("stopped %d tracks, want %d", len(stopped), tt.wantCount)
			}
			for i, id := range stopped {
				if id != tracks[i].ID {
					t.Errorf("stop #%d hit %s, want %s", i, id, tracks[i].ID)
				}
			}
		})
	}
}

func TestSkipEmpty(t *testing.T) {
	s, conn := newTestSession()
	first, count := s.Skip(3)
	if first != nil || count != 0 {
		t.Errorf("Skip on empty queue = (%v, %d), want (nil, 0)", first, count)
	}
	if len(conn.stoppedIDs()) != 0 {
		t.Errorf("stop called on empty queue")
	}
}

func TestSkipStopFailureStillRemoves(t *testing.T) {
	s, conn := newTestSession()
	fill(t, s, "A", "B")
	conn.stopErr = errBoom

	first, count := s.Skip(1)
	if first == nil || first.Title != "A" || count != 1 {
		t.Fatalf("Skip = (%v, %d), want (A, 1)", first, count)
	}
	if got := titles(s.Snapshot()); !equalStrings(got, []string{"B"}) {
		t.Errorf("Snapshot = %v, want [B]", got)
	}
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		wantErr  error
		wantGone string
		wantLeft []string
	}{
		{"first pending", 1, nil, "B", []string{"A", "C"}},
		{"last pending", 2, nil, "C", []string{"A", "B"}},
		{"now playing", 0, ErrInvalidIndex, "", []string{"A", "B", "C"}},
		{"negative", -1, ErrInvalidIndex, "", []string{"A", "B", "C"}},
		{"past end", 3, ErrInvalidIndex, "", []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, conn := newTestSession()
			fill(t, s, "A", "B", "C")

			got, err := s.Remove(tt.index)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Remove(%d) error = %v, want %v", tt.index, err, tt.wantErr)
				}
				if len(conn.stoppedIDs()) != 0 {
					t.Errorf("stop called on a rejected remove")
				}
			} else {
				if err != nil {
					t.Fatalf("Remove(%d): %v", tt.index, err)
				}
				if got.Title != tt.wantGone {
					t.Errorf("removed %s, want %s", got.Title, tt.wantGone)
				}
				stopped := conn.stoppedIDs()
				if len(stopped) != 1 || stopped[0] != got.ID {
					t.Errorf("stopped = %v, want exactly [%s]", stopped, got.ID)
				}
			}

			if left := titles(s.Snapshot()); !equalStrings(left, tt.wantLeft) {
				t.Errorf("Snapshot = %v, want %v", left, tt.wantLeft)
			}
		})
	}
}

func TestRemoveEmpty(t *testing.T) {
	s, _ := newTestSession()
	if _, err := s.Remove(1); !errors.Is(err, ErrEmptyQueue) {
		t.Errorf("Remove on empty queue error = %v, want %v", err, ErrEmptyQueue)
	}
}

func TestSnapshotForgetsFinishedTracks(t *testing.T) {
	s, conn := newTestSession()
	tracks := fill(t, s, "A", "B")

	conn.finish()

	if got := titles(s.Snapshot()); !equalStrings(got, []string{"B"}) {
		t.Errorf("Snapshot = %v, want [B]", got)
	}
	if _, ok := s.lookup(tracks[0].ID); ok {
		t.Errorf("finished track A still has metadata")
	}
	if s.Current() != tracks[1] {
		t.Errorf("Current should be B after A finished")
	}
}

func metadataLen(s *Session) int {
	n := 0
	s.queue.tracks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestFinishedTracksAreForgottenWithoutSnapshot(t *testing.T) {
	s, conn := newTestSession()
	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("T%d", i)
	}
	fill(t, s, names...)

	for range names {
		conn.finish()
	}
	if s.Current() != nil {
		t.Fatalf("Current should be nil after every track finished")
	}
	if n := metadataLen(s); n != 0 {
		t.Errorf("kept metadata for %d finished tracks", n)
	}

	fill(t, s, "A", "B")
	conn.finish()
	fill(t, s, "C")
	if n := metadataLen(s); n != 2 {
		t.Errorf("metadata entries = %d, want 2 (B and C)", n)
	}
}

func TestEnqueueStartedAfterHeadFinishes(t *testing.T) {
	s, conn := newTestSession()
	fill(t, s, "A")

	// A ends while B is being handed to the transport.
	conn.beforeEnqueue = conn.finish
	started, err := s.Enqueue(context.Background(), track("B"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !started {
		t.Errorf("B became the current track but Enqueue reported it queued")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newTestSession()
	fill(t, s, "A", "B", "C")

	snap := s.Snapshot()
	s.Skip(1)

	if got := titles(snap); !equalStrings(got, []string{"A", "B", "C"}) {
		t.Errorf("earlier snapshot changed to %v", got)
	}
}

func TestConcurrentEnqueue(t *testing.T) {
	s, _ := newTestSession()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Enqueue(context.Background(), track(fmt.Sprintf("T%d", i))); err != nil {
				t.Errorf("Enqueue: %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if len(snap) != n {
		t.Fatalf("Snapshot has %d tracks, want %d", len(snap), n)
	}
	seen := make(map[uuid.UUID]bool, n)
	for _, tr := range snap {
		if seen[tr.ID] {
			t.Errorf("track %s appears twice", tr.Title)
		}
		seen[tr.ID] = true
	}
}

func TestPlaybackScenario(t *testing.T) {
	transport := newFakeTransport()
	chat := &fakeChat{}
	dir := &fakeDirectory{userChannels: map[snowflake.ID]snowflake.ID{7: 70}}
	r := NewRegistry(transport, dir, chat)
	ctx := context.Background()

	s, created, err := r.JoinOrGet(ctx, JoinRequest{GuildID: 1, UserID: 7, NotifyChannelID: 99})
	if err != nil || !created {
		t.Fatalf("JoinOrGet = (%v, %v), want new session", created, err)
	}

	a, b, c := track("A"), track("B"), track("C")
	if started, _ := s.Enqueue(ctx, a); !started {
		t.Fatalf("A should start")
	}
	if s.Current() != a {
		t.Fatalf("Current should be A")
	}
	if sent := chat.sentMessages(); len(sent) != 1 || sent[0].msg.Content != "Now playing *A*." || sent[0].channelID != 99 {
		t.Fatalf("now playing notifications = %+v, want one for A in channel 99", sent)
	}

	_, _ = s.Enqueue(ctx, b)
	_, _ = s.Enqueue(ctx, c)
	if got := titles(s.Snapshot()); !equalStrings(got, []string{"A", "B", "C"}) {
		t.Fatalf("Snapshot = %v, want [A B C]", got)
	}

	first, count := s.Skip(1)
	if first != a || count != 1 {
		t.Fatalf("Skip(1) = (%v, %d), want (A, 1)", first, count)
	}
	if got := titles(s.Snapshot()); !equalStrings(got, []string{"B", "C"}) {
		t.Fatalf("Snapshot = %v, want [B C]", got)
	}
	if stopped := transport.conn(1).stoppedIDs(); len(stopped) != 1 || stopped[0] != a.ID {
		t.Fatalf("stopped = %v, want [A]", stopped)
	}

	removed, err := s.Remove(1)
	if err != nil || removed != c {
		t.Fatalf("Remove(1) = (%v, %v), want C", removed, err)
	}
	if got := titles(s.Snapshot()); !equalStrings(got, []string{"B"}) {
		t.Fatalf("Snapshot = %v, want [B]", got)
	}

	if err := r.Leave(ctx, 2); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Leave on guild without session = %v, want %v", err, ErrNotConnected)
	}
}

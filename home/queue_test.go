package home

import (
	"context"
	"testing"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/muse/proc"
)

func recordPosts(posted *[]proc.Message) func(context.Context, proc.Message) (proc.MessageRef, error) {
	return func(_ context.Context, m proc.Message) (proc.MessageRef, error) {
		*posted = append(*posted, m)
		return proc.MessageRef{ChannelID: 5, MessageID: 100}, nil
	}
}

func TestOpenQueueEmptyIsEphemeral(t *testing.T) {
	var posted []proc.Message
	if err := openQueue(context.Background(), nil, 7, nil, 1, proc.BrowserOptions{}, recordPosts(&posted)); err != nil {
		t.Fatalf("openQueue: %v", err)
	}
	if len(posted) != 1 {
		t.Fatalf("posted %d messages, want 1", len(posted))
	}
	if posted[0].Content != "The queue is empty." || !posted[0].Ephemeral {
		t.Errorf("reply = %+v, want an ephemeral empty notice", posted[0])
	}
}

func TestOpenQueueNowPlayingOnly(t *testing.T) {
	var posted []proc.Message
	snapshot := []*proc.Track{proc.NewTrack(proc.Metadata{Title: "Song"}, 1)}

	// Nothing pending means no pages, so the browser never collects clicks.
	if err := openQueue(context.Background(), nil, 7, snapshot, 1, proc.BrowserOptions{}, recordPosts(&posted)); err != nil {
		t.Fatalf("openQueue: %v", err)
	}
	if len(posted) != 1 || posted[0].Ephemeral {
		t.Fatalf("posted = %+v, want one public message", posted)
	}
	if posted[0].Summary == nil || posted[0].Summary.Title != "Song" {
		t.Errorf("summary = %+v", posted[0].Summary)
	}
}

func TestRouteClick(t *testing.T) {
	const msg, user snowflake.ID = 100, 7
	tests := []struct {
		name       string
		gotMessage snowflake.ID
		gotUser    snowflake.ID
		want       clickRoute
	}{
		{"invoker on the message", msg, user, clickAccept},
		{"someone else on the message", msg, 8, clickDismiss},
		{"other message", 101, user, clickIgnore},
		{"other message and user", 101, 8, clickIgnore},
	}
	for _, tt := range tests {
		if got := routeClick(msg, user, tt.gotMessage, tt.gotUser); got != tt.want {
			t.Errorf("%s: routeClick = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClicksNextTimesOut(t *testing.T) {
	ch := make(chan *events.ComponentInteractionCreate)
	c := &clicks{incoming: ch, stop: func() { close(ch) }}
	defer c.Stop()

	if _, ok := c.Next(context.Background(), 10*time.Millisecond); ok {
		t.Fatal("Next returned a click on an idle channel")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := c.Next(ctx, time.Minute); ok {
		t.Fatal("Next returned a click after cancel")
	}
}

func TestClicksStopReleasesPendingDelivery(t *testing.T) {
	ch := make(chan *events.ComponentInteractionCreate)
	delivered := make(chan struct{})
	stops := 0
	c := &clicks{incoming: ch, stop: func() {
		stops++
		// The listener only closes the channel once the blocked send returned.
		<-delivered
		close(ch)
	}}

	go func() {
		ch <- nil
		close(delivered)
	}()

	done := make(chan struct{})
	go func() {
		c.Stop()
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an undelivered click")
	}
	if stops != 1 {
		t.Errorf("listener removed %d times, want 1", stops)
	}
	if _, ok := c.Next(context.Background(), time.Minute); ok {
		t.Errorf("Next after Stop returned a click")
	}
}

type fakeVoice map[snowflake.ID]snowflake.ID

func (f fakeVoice) VoiceChannelOf(_, userID snowflake.ID) (snowflake.ID, bool) {
	id, ok := f[userID]
	return id, ok
}

func TestLostVoice(t *testing.T) {
	const bot snowflake.ID = 9
	if !lostVoice(fakeVoice{}, 1, bot) {
		t.Errorf("bot without a voice state should count as disconnected")
	}
	// A late disconnect after rejoining must not drop the new session.
	if lostVoice(fakeVoice{bot: 70}, 1, bot) {
		t.Errorf("stale disconnect dropped a live connection")
	}
}

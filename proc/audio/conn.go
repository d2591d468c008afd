package audio

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/muse/proc"
	"github.com/leeineian/muse/sys"
)

// handle is one queued track. It is stopped at most once and finishes when
// its stream ends for any reason.
type handle struct {
	id  uuid.UUID
	url string

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopped  bool
	finished bool
}

func (h *handle) ID() uuid.UUID { return h.id }

func (h *handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return ErrTrackFinished
	}
	h.stopped = true
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// begin marks the handle as playing. It fails for stopped handles.
func (h *handle) begin(cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.finished {
		return false
	}
	h.cancel = cancel
	return true
}

func (h *handle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

func (h *handle) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = true
	h.cancel = nil
}

// guildConn owns the play queue of one voice connection. A single player
// goroutine plays the head of the queue.
type guildConn struct {
	guildID snowflake.ID
	sink    sink
	source  Source

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mu        sync.Mutex
	queue     []proc.Handle
	listeners []func([]proc.Handle)
}

func newGuildConn(guildID snowflake.ID, s sink, source Source) *guildConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &guildConn{
		guildID: guildID,
		sink:    s,
		source:  source,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
	}
}

func (c *guildConn) Enqueue(_ context.Context, t *proc.Track) (proc.Handle, error) {
	if c.ctx.Err() != nil {
		return nil, ErrConnClosed
	}
	h := &handle{id: t.ID, url: t.URL}
	c.mu.Lock()
	c.queue = append(c.queue, h)
	c.mu.Unlock()
	c.notify()
	return h, nil
}

func (c *guildConn) CurrentQueue() []proc.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proc.Handle(nil), c.queue...)
}

func (c *guildConn) ModifyQueue(fn func([]proc.Handle) []proc.Handle) {
	c.mu.Lock()
	c.queue = fn(append([]proc.Handle(nil), c.queue...))
	c.mu.Unlock()
	c.notify()
}

func (c *guildConn) OnTrackStart(fn func([]proc.Handle)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *guildConn) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *guildConn) head() *handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) > 0 {
		if h, ok := c.queue[0].(*handle); ok {
			return h
		}
		c.queue = c.queue[1:]
	}
	return nil
}

// pop removes h if it is still the head.
func (c *guildConn) pop(h *handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) > 0 && c.queue[0] == proc.Handle(h) {
		c.queue = c.queue[1:]
	}
}

func (c *guildConn) run() {
	defer close(c.done)
	for {
		h := c.head()
		if h == nil {
			select {
			case <-c.wake:
				continue
			case <-c.ctx.Done():
				return
			}
		}
		c.play(h)
		if c.ctx.Err() != nil {
			return
		}
	}
}

func (c *guildConn) play(h *handle) {
	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	if !h.begin(cancel) {
		h.finish()
		c.pop(h)
		return
	}

	p := NewStreamProvider(ctx)
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		defer p.PushFrame(nil)
		if err := c.source.Stream(ctx, h.url, p.PushFrame); err != nil && ctx.Err() == nil {
			sys.LogVoice(sys.MsgVoiceStreamError, h.url, err)
		}
	}()

	c.sink.SetOpusFrameProvider(p)
	c.sink.Speaking(ctx, true)
	// A skip can land between begin and here; a skipped track is not announced.
	if !h.isStopped() {
		c.emit(h)
	}

	select {
	case <-p.Done():
		sys.LogVoiceDebug(sys.MsgVoicePlayback, h.url)
	case <-ctx.Done():
	}
	cancel()
	<-streamDone

	h.finish()
	c.sink.SetOpusFrameProvider(nil)
	c.sink.Speaking(context.Background(), false)
	c.pop(h)
}

func (c *guildConn) emit(h *handle) {
	c.mu.Lock()
	ls := append([]func([]proc.Handle){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range ls {
		fn([]proc.Handle{h})
	}
}

// close stops every queued track, waits for the player and closes the
// voice connection.
func (c *guildConn) close(ctx context.Context) {
	c.mu.Lock()
	q := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, h := range q {
		_ = h.Stop()
	}
	c.cancel()
	<-c.done
	for _, h := range q {
		if hh, ok := h.(*handle); ok {
			hh.finish()
		}
	}
	c.sink.Close(ctx)
}

package audio

import (
	"context"
	"io"
	"sync"
	"time"
)

// silenceAfter is how long ProvideOpusFrame waits before sending silence.
const silenceAfter = 100 * time.Millisecond

// StreamProvider feeds encoded Opus frames to the voice connection. A nil
// frame marks the end of the stream.
type StreamProvider struct {
	ctx    context.Context
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewStreamProvider(ctx context.Context) *StreamProvider {
	return &StreamProvider{
		ctx:    ctx,
		frames: make(chan []byte, 100),
		done:   make(chan struct{}),
	}
}

// PushFrame blocks until the frame is buffered or the stream is canceled.
func (p *StreamProvider) PushFrame(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *StreamProvider) ProvideOpusFrame() ([]byte, error) {
	select {
	case f := <-p.frames:
		if f == nil {
			p.Close()
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		p.Close()
		return nil, io.EOF
	case <-time.After(silenceAfter):
		return nil, nil
	}
}

func (p *StreamProvider) Close() {
	p.once.Do(func() { close(p.done) })
}

// Done is closed once the last frame was handed out or the stream was canceled.
func (p *StreamProvider) Done() <-chan struct{} {
	return p.done
}

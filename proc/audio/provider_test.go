package audio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestStreamProvider(t *testing.T) {
	p := NewStreamProvider(context.Background())
	go func() {
		p.PushFrame([]byte{1})
		p.PushFrame(nil)
	}()

	f, err := p.ProvideOpusFrame()
	if err != nil || len(f) != 1 {
		t.Fatalf("first frame = (%v, %v)", f, err)
	}
	if _, err := p.ProvideOpusFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("end of stream = %v, want EOF", err)
	}
	select {
	case <-p.Done():
	default:
		t.Errorf("Done not closed after end of stream")
	}
	p.Close()
}

func TestStreamProviderSilence(t *testing.T) {
	p := NewStreamProvider(context.Background())
	start := time.Now()
	f, err := p.ProvideOpusFrame()
	if f != nil || err != nil {
		t.Errorf("idle provider = (%v, %v), want silence", f, err)
	}
	if time.Since(start) < silenceAfter/2 {
		t.Errorf("silence returned too early")
	}
}

func TestStreamProviderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewStreamProvider(ctx)
	cancel()

	p.PushFrame([]byte{1}) // must not block
	for i := 0; i < 3; i++ {
		if _, err := p.ProvideOpusFrame(); errors.Is(err, io.EOF) {
			return
		}
	}
	t.Errorf("canceled provider never reported EOF")
}

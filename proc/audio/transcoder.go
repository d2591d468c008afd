package audio

import (
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astiav"
)

const (
	sampleRate   = 48000
	frameSamples = 960 // 20 ms at 48 kHz
	opusBitrate  = 192000
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes any audio container read from an io.Reader and encodes
// it as 48 kHz stereo Opus, one frame per callback.
type Transcoder struct {
	inputCtx               *astiav.FormatContext
	decoderCtx, encoderCtx *astiav.CodecContext
	audioStreamIndex       int
	packet                 *astiav.Packet
	frame                  *astiav.Frame
	resampleCtx            *astiav.SoftwareResampleContext
	resampleFrame          *astiav.Frame
	fifo                   *astiav.AudioFifo
	onFrame                func([]byte)
	pts                    int64
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		packet:        astiav.AllocPacket(),
		frame:         astiav.AllocFrame(),
		resampleFrame: astiav.AllocFrame(),
	}
}

// Open inspects r and sets up the decoder, resampler and encoder.
func (t *Transcoder) Open(r io.Reader) error {
	t.inputCtx = astiav.AllocFormatContext()
	if t.inputCtx == nil {
		return errors.New("failed to alloc format context")
	}

	ioCtx, err := astiav.AllocIOContext(16*1024, false, r.Read, func(offset int64, whence int) (int64, error) {
		return 0, errors.New("seek not supported")
	}, nil)
	if err != nil {
		return err
	}
	t.inputCtx.SetPb(ioCtx)
	t.inputCtx.SetFlags(t.inputCtx.Flags().Add(astiav.FormatContextFlagCustomIo))

	opts := astiav.NewDictionary()
	defer opts.Free()
	opts.Set("probesize", "10000000", 0)
	opts.Set("analyzeduration", "10000000", 0)
	if err := t.inputCtx.OpenInput("", nil, opts); err != nil {
		return err
	}
	if err := t.inputCtx.FindStreamInfo(nil); err != nil {
		return err
	}

	t.audioStreamIndex = -1
	for _, s := range t.inputCtx.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.audioStreamIndex = s.Index()
			break
		}
	}
	if t.audioStreamIndex == -1 {
		return errors.New("no audio stream")
	}

	if err := t.setupDecoder(); err != nil {
		return err
	}
	return t.setupEncoder()
}

func (t *Transcoder) setupDecoder() error {
	p := t.inputCtx.Streams()[t.audioStreamIndex].CodecParameters()
	d := astiav.FindDecoder(p.CodecID())
	if d == nil {
		return errors.New("no decoder")
	}
	t.decoderCtx = astiav.AllocCodecContext(d)
	if err := p.ToCodecContext(t.decoderCtx); err != nil {
		return err
	}
	return t.decoderCtx.Open(d, nil)
}

func (t *Transcoder) setupEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("no opus encoder")
	}
	t.encoderCtx = astiav.AllocCodecContext(e)
	t.encoderCtx.SetBitRate(opusBitrate)
	t.encoderCtx.SetSampleRate(sampleRate)
	t.encoderCtx.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoderCtx.SetSampleFormat(astiav.SampleFormatS16)
	t.encoderCtx.SetTimeBase(astiav.NewRational(1, sampleRate))

	o := astiav.NewDictionary()
	defer o.Free()
	o.Set("vbr", "on", 0)
	o.Set("frame_size", "20", 0)
	if err := t.encoderCtx.Open(e, o); err != nil {
		return err
	}

	// Configured lazily by ConvertFrame from the first decoded frame.
	t.resampleCtx = astiav.AllocSoftwareResampleContext()
	if t.resampleCtx == nil {
		return errors.New("failed to allocate resampler")
	}
	return nil
}

// Transcode runs until the input ends or ctx is canceled. on receives a copy
// of every encoded packet.
func (t *Transcoder) Transcode(ctx context.Context, on func([]byte)) error {
	t.onFrame = on
	t.fifo = astiav.AllocAudioFifo(t.encoderCtx.SampleFormat(), t.encoderCtx.ChannelLayout().Channels(), frameSamples*2)
	defer func() {
		t.fifo.Free()
		t.fifo = nil
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.inputCtx.ReadFrame(t.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return err
		}
		if t.packet.StreamIndex() != t.audioStreamIndex {
			t.packet.Unref()
			continue
		}
		err := t.decoderCtx.SendPacket(t.packet)
		t.packet.Unref()
		if err != nil {
			return err
		}
		t.drainDecoder()
		t.writeFifo(frameSamples)
	}

	_ = t.decoderCtx.SendPacket(nil)
	t.drainDecoder()
	t.writeFifo(1)

	_ = t.encoderCtx.SendFrame(nil)
	t.receivePackets()
	return nil
}

func (t *Transcoder) drainDecoder() {
	for t.decoderCtx.ReceiveFrame(t.frame) == nil {
		nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()), astiav.NewRational(1, t.frame.SampleRate()), astiav.NewRational(1, sampleRate)))
		if nb > 0 {
			t.prepareResampleFrame(nb)
			if t.resampleCtx.ConvertFrame(t.frame, t.resampleFrame) == nil {
				_, _ = t.fifo.Write(t.resampleFrame)
			}
		}
		t.frame.Unref()
	}
}

// writeFifo encodes buffered samples in 20 ms chunks while at least
// threshold samples are waiting. The last chunk may be short.
func (t *Transcoder) writeFifo(threshold int) {
	for t.fifo.Size() >= threshold && t.fifo.Size() > 0 {
		n := frameSamples
		if t.fifo.Size() < n {
			n = t.fifo.Size()
		}
		t.prepareResampleFrame(n)
		_, _ = t.fifo.Read(t.resampleFrame)
		t.resampleFrame.SetPts(t.pts)
		t.pts += int64(n)
		if t.encoderCtx.SendFrame(t.resampleFrame) == nil {
			t.receivePackets()
		}
	}
}

func (t *Transcoder) prepareResampleFrame(nb int) {
	t.resampleFrame.Unref()
	t.resampleFrame.SetNbSamples(nb)
	t.resampleFrame.SetChannelLayout(t.encoderCtx.ChannelLayout())
	t.resampleFrame.SetSampleFormat(t.encoderCtx.SampleFormat())
	t.resampleFrame.SetSampleRate(t.encoderCtx.SampleRate())
	_ = t.resampleFrame.AllocBuffer(0)
}

func (t *Transcoder) receivePackets() {
	for {
		p := astiav.AllocPacket()
		if t.encoderCtx.ReceivePacket(p) != nil {
			p.Free()
			return
		}
		d := p.Data()
		fd := make([]byte, len(d))
		copy(fd, d)
		p.Free()
		t.onFrame(fd)
	}
}

func (t *Transcoder) Close() {
	if t.resampleCtx != nil {
		t.resampleCtx.Free()
	}
	if t.resampleFrame != nil {
		t.resampleFrame.Free()
	}
	if t.packet != nil {
		t.packet.Free()
	}
	if t.frame != nil {
		t.frame.Free()
	}
	if t.decoderCtx != nil {
		t.decoderCtx.Free()
	}
	if t.encoderCtx != nil {
		t.encoderCtx.Free()
	}
	if t.inputCtx != nil {
		t.inputCtx.CloseInput()
		t.inputCtx.Free()
	}
}

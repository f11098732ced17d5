package proc

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/leeineian/jukebox/sys"
)

const (
	sampleRate  = 48000
	frameSize   = 960 // 20ms at 48kHz
	opusBitrate = 192000
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes any input ffmpeg understands and encodes it to 20ms
// stereo opus frames. Gain is applied to the PCM samples before encoding and
// may change while Transcode runs.
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
	gain                   atomic.Uint64
}

func NewTranscoder() *Transcoder {
	t := &Transcoder{packet: astiav.AllocPacket(), frame: astiav.AllocFrame(), resampleFrame: astiav.AllocFrame()}
	t.SetGain(1)
	return t
}

func (t *Transcoder) SetGain(g float64) {
	t.gain.Store(math.Float64bits(g))
}

func (t *Transcoder) Gain() float64 {
	return math.Float64frombits(t.gain.Load())
}

// Position is the amount of audio encoded so far, seek offset included.
func (t *Transcoder) Position() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.pts)) * time.Second / sampleRate
}

// OpenInput opens a URL or path and selects its first audio stream.
func (t *Transcoder) OpenInput(in string) error {
	t.inputCtx = astiav.AllocFormatContext()
	if t.inputCtx == nil {
		return errors.New("failed to alloc ctx")
	}
	opts := inputOptions(in)
	if err := t.inputCtx.OpenInput(in, nil, opts); err != nil {
		if opts != nil {
			opts.Free()
		}
		return err
	}
	if opts != nil {
		opts.Free()
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
		return errors.New("no audio")
	}
	return nil
}

// inputOptions keeps remote media URLs alive across dropped connections.
// Local inputs need no options.
func inputOptions(in string) *astiav.Dictionary {
	if !strings.HasPrefix(in, "http://") && !strings.HasPrefix(in, "https://") {
		return nil
	}
	opts := astiav.NewDictionary()
	for k, v := range remoteInputOptions {
		_ = opts.Set(k, v, 0)
	}
	return opts
}

var remoteInputOptions = map[string]string{
	"reconnect":           "1",
	"reconnect_streamed":  "1",
	"reconnect_delay_max": "30",
	"timeout":             "30000000",
}

func (t *Transcoder) SetupDecoder() error {
	p := t.inputCtx.Streams()[t.audioStreamIndex].CodecParameters()
	d := astiav.FindDecoder(p.CodecID())
	if d == nil {
		return errors.New("no decoder")
	}
	t.decoderCtx = astiav.AllocCodecContext(d)
	_ = p.ToCodecContext(t.decoderCtx)
	return t.decoderCtx.Open(d, nil)
}

func (t *Transcoder) SetupEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("no encoder")
	}
	t.encoderCtx = astiav.AllocCodecContext(e)
	t.encoderCtx.SetBitRate(opusBitrate)
	t.encoderCtx.SetSampleRate(sampleRate)
	t.encoderCtx.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoderCtx.SetSampleFormat(astiav.SampleFormatS16)
	t.encoderCtx.SetTimeBase(astiav.NewRational(1, sampleRate))
	o := astiav.NewDictionary()
	defer o.Free()
	_ = o.Set("vbr", "on", 0)
	_ = o.Set("compression_level", "10", 0)
	_ = o.Set("frame_size", "20", 0)
	if err := t.encoderCtx.Open(e, o); err != nil {
		return err
	}
	// the resampler configures itself from the first converted frame
	t.resampleCtx = astiav.AllocSoftwareResampleContext()
	if t.resampleCtx == nil {
		return errors.New("failed to allocate resampler")
	}
	return nil
}

// SeekTo moves the input to offset. It must be called before Transcode.
func (t *Transcoder) SeekTo(offset time.Duration) error {
	if offset <= 0 {
		return nil
	}
	ts := int64(offset / time.Millisecond * sampleRate / 1000)
	streamTb := t.inputCtx.Streams()[t.audioStreamIndex].TimeBase()
	streamTs := astiav.RescaleQ(ts, astiav.NewRational(1, sampleRate), streamTb)
	if err := t.inputCtx.SeekFrame(t.audioStreamIndex, streamTs, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		sys.LogVoice(sys.MsgVoiceSeekFail, err)
		return err
	}
	if t.decoderCtx != nil {
		t.decoderCtx.FlushBuffers()
	}
	atomic.StoreInt64(&t.pts, ts)
	return nil
}

// Transcode feeds encoded frames to on until the input ends or ctx is done.
func (t *Transcoder) Transcode(ctx context.Context, on func([]byte)) error {
	defer t.packet.Unref()
	t.onFrame = on
	t.fifo = astiav.AllocAudioFifo(t.encoderCtx.SampleFormat(), t.encoderCtx.ChannelLayout().Channels(), frameSize*2)
	defer func() {
		if t.fifo != nil {
			t.fifo.Free()
			t.fifo = nil
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
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
		if err := t.decoderCtx.SendPacket(t.packet); err != nil {
			t.packet.Unref()
			return err
		}
		t.packet.Unref()
		t.drainDecoder()
		if err := t.processFifo(frameSize); err != nil {
			return err
		}
	}

	if t.decoderCtx != nil {
		_ = t.decoderCtx.SendPacket(nil)
		t.drainDecoder()
	}
	if err := t.processFifo(1); err != nil {
		return err
	}

	_ = t.encoderCtx.SendFrame(nil)
	t.receivePackets()
	return nil
}

// drainDecoder resamples every decoded frame into the fifo.
func (t *Transcoder) drainDecoder() {
	for {
		if err := t.decoderCtx.ReceiveFrame(t.frame); err != nil {
			return
		}
		t.prepareFrame()
		nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()), astiav.NewRational(1, t.frame.SampleRate()), astiav.NewRational(1, t.encoderCtx.SampleRate())))
		if nb > 0 {
			t.resampleFrame.SetNbSamples(nb)
			_ = t.resampleFrame.AllocBuffer(0)
			if t.resampleCtx.ConvertFrame(t.frame, t.resampleFrame) == nil {
				_, _ = t.fifo.Write(t.resampleFrame)
			}
		}
		t.frame.Unref()
	}
}

// processFifo encodes frames while at least threshold samples are buffered.
func (t *Transcoder) processFifo(threshold int) error {
	for t.fifo.Size() >= threshold && t.fifo.Size() > 0 {
		sz := min(frameSize, t.fifo.Size())
		t.prepareFrame()
		t.resampleFrame.SetNbSamples(sz)
		_ = t.resampleFrame.AllocBuffer(0)
		_, _ = t.fifo.Read(t.resampleFrame)

		if g := t.Gain(); g != 1 {
			data, err := t.resampleFrame.Data().Bytes(1)
			if err == nil {
				// S16 stereo: 4 bytes per sample frame
				scalePCM16(data[:min(sz*4, len(data))], g)
				_ = t.resampleFrame.Data().SetBytes(data, 1)
			}
		}

		t.resampleFrame.SetPts(atomic.LoadInt64(&t.pts))
		atomic.AddInt64(&t.pts, int64(sz))
		if err := t.encoderCtx.SendFrame(t.resampleFrame); err != nil {
			return err
		}
		t.receivePackets()
	}
	return nil
}

func (t *Transcoder) prepareFrame() {
	t.resampleFrame.Unref()
	t.resampleFrame.SetChannelLayout(t.encoderCtx.ChannelLayout())
	t.resampleFrame.SetSampleFormat(t.encoderCtx.SampleFormat())
	t.resampleFrame.SetSampleRate(t.encoderCtx.SampleRate())
}

func (t *Transcoder) receivePackets() {
	for {
		p := astiav.AllocPacket()
		if t.encoderCtx.ReceivePacket(p) != nil {
			p.Free()
			return
		}
		if t.onFrame != nil {
			d := p.Data()
			fd := make([]byte, len(d))
			copy(fd, d)
			t.onFrame(fd)
		}
		p.Free()
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

// scalePCM16 multiplies little endian signed 16 bit samples by g in place,
// saturating at the sample range.
func scalePCM16(b []byte, g float64) {
	for i := 0; i+1 < len(b); i += 2 {
		sample := int16(uint16(b[i]) | uint16(b[i+1])<<8)
		scaled := math.Round(float64(sample) * g)
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		v := uint16(int16(scaled))
		b[i] = byte(v)
		b[i+1] = byte(v >> 8)
	}
}

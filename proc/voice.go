package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
)

const joinTimeout = 15 * time.Second

var errConnClosed = errors.New("voice connection closed")

// ===========================
// Voice System
// ===========================

// VoiceSystem opens disgo voice connections for the playback controller and
// watches voice state updates for connections that went away.
type VoiceSystem struct {
	client *bot.Client
	mu     sync.Mutex
	conns  map[snowflake.ID]*voiceConn

	// Release is called when the bot was disconnected or moved out of its
	// channel, or the channel has no humans left.
	Release func(ctx context.Context, guildID snowflake.ID)
}

func NewVoiceSystem(client *bot.Client) *VoiceSystem {
	return &VoiceSystem{client: client, conns: make(map[snowflake.ID]*voiceConn)}
}

func (vs *VoiceSystem) Connect(ctx context.Context, guildID, channelID snowflake.ID) (music.Voice, error) {
	vs.mu.Lock()
	old := vs.conns[guildID]
	vs.mu.Unlock()
	if old != nil {
		old.Close(ctx)
	}

	sys.LogVoice(sys.MsgVoiceJoining, channelID, guildID)
	conn := vs.client.VoiceManager.CreateConn(guildID)
	openCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	if err := conn.Open(openCtx, channelID, false, false); err != nil {
		sys.LogVoice(sys.MsgVoiceJoinFail, channelID, err)
		conn.Close(ctx)
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}

	c := &voiceConn{vs: vs, guildID: guildID, channelID: channelID, conn: conn}
	vs.mu.Lock()
	vs.conns[guildID] = c
	vs.mu.Unlock()
	return c, nil
}

// ChannelID returns the channel the bot is connected to in guildID, or 0.
func (vs *VoiceSystem) ChannelID(guildID snowflake.ID) snowflake.ID {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if c, ok := vs.conns[guildID]; ok {
		return c.channelID
	}
	return 0
}

// Disconnect closes the guild's connection. It reports whether one was open.
func (vs *VoiceSystem) Disconnect(ctx context.Context, guildID snowflake.ID) bool {
	vs.mu.Lock()
	c := vs.conns[guildID]
	vs.mu.Unlock()
	if c == nil {
		return false
	}
	c.Close(ctx)
	return true
}

// Shutdown closes every open connection.
func (vs *VoiceSystem) Shutdown(ctx context.Context) {
	vs.mu.Lock()
	conns := make([]*voiceConn, 0, len(vs.conns))
	for _, c := range vs.conns {
		conns = append(conns, c)
	}
	vs.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close(ctx)
		}()
	}
	wg.Wait()
}

func (vs *VoiceSystem) forget(c *voiceConn) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.conns[c.guildID] == c {
		delete(vs.conns, c.guildID)
	}
}

// OnVoiceStateUpdate releases the guild's queue when its connection is no
// longer useful.
func (vs *VoiceSystem) OnVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	state := event.VoiceState
	current := vs.ChannelID(state.GuildID)
	if current == 0 {
		return
	}

	client := event.Client()
	self := state.UserID == client.ID()
	humans := 0
	if !self {
		for s := range client.Caches.VoiceStates(state.GuildID) {
			if s.ChannelID == nil || *s.ChannelID != current || s.UserID == client.ID() {
				continue
			}
			if m, ok := client.Caches.Member(state.GuildID, s.UserID); !ok || !m.User.Bot {
				humans++
			}
		}
	}

	switch voiceVerdict(self, current, state.ChannelID, humans) {
	case verdictDisconnected:
		sys.LogVoice(sys.MsgVoiceDisconnected, state.GuildID)
	case verdictEmpty:
		sys.LogVoice(sys.MsgVoiceChannelEmpty, state.GuildID)
	default:
		return
	}
	if vs.Release != nil {
		vs.Release(sys.AppContext, state.GuildID)
	}
}

type verdict int

const (
	verdictStay verdict = iota
	verdictDisconnected
	verdictEmpty
)

// voiceVerdict decides what a voice state update means for a connection in
// channel current. humans is only consulted for updates about other users.
func voiceVerdict(self bool, current snowflake.ID, next *snowflake.ID, humans int) verdict {
	if self {
		if next == nil || *next != current {
			return verdictDisconnected
		}
		return verdictStay
	}
	if humans == 0 {
		return verdictEmpty
	}
	return verdictStay
}

// ===========================
// Voice Connection
// ===========================

type voiceConn struct {
	vs                 *VoiceSystem
	guildID, channelID snowflake.ID
	conn               voice.Conn

	mu       sync.Mutex
	playback *playback
	closed   bool
}

func (c *voiceConn) ChannelID() snowflake.ID {
	return c.channelID
}

// Play starts st on the connection, replacing whatever was playing. The
// input is opened before Play returns so open failures surface as errors.
func (c *voiceConn) Play(ctx context.Context, st *music.Stream, gain float64) (music.Resource, error) {
	t := NewTranscoder()
	t.SetGain(gain)
	if err := prepareTranscoder(t, st); err != nil {
		t.Close()
		sys.LogVoice(sys.MsgVoiceTranscodeFail, err)
		return nil, err
	}

	p := newPlayback(t)
	p.onFinish = func() { c.finished(p) }
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		t.Close()
		return nil, errConnClosed
	}
	old := c.playback
	c.playback = p
	c.mu.Unlock()
	if old != nil {
		old.Stop(music.StopRequested)
	}

	go p.run()

	c.setOpusFrameProviderSafe(p)
	c.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)
	return p, nil
}

func prepareTranscoder(t *Transcoder, st *music.Stream) error {
	if err := t.OpenInput(st.Input); err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	if err := t.SetupDecoder(); err != nil {
		return fmt.Errorf("setup decoder: %w", err)
	}
	if err := t.SetupEncoder(); err != nil {
		return fmt.Errorf("setup encoder: %w", err)
	}
	if !st.Live && st.Offset > 0 {
		if err := t.SeekTo(st.Offset); err != nil {
			return fmt.Errorf("seek to %s: %w", st.Offset, err)
		}
	}
	return nil
}

// finished detaches p from the connection once it completed.
func (c *voiceConn) finished(p *playback) {
	c.mu.Lock()
	if c.playback != p {
		c.mu.Unlock()
		return
	}
	c.playback = nil
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.setOpusFrameProviderSafe(nil)
	c.conn.SetSpeaking(context.Background(), 0)
}

func (c *voiceConn) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	p := c.playback
	c.playback = nil
	c.mu.Unlock()

	if p != nil {
		p.Stop(music.StopRequested)
	}
	c.setOpusFrameProviderSafe(nil)
	c.conn.Close(ctx)
	c.vs.forget(c)
	sys.LogVoice(sys.MsgVoiceLeft, c.guildID)
}

// setOpusFrameProviderSafe sets the opus frame provider safely, recovering from any potential panics
func (c *voiceConn) setOpusFrameProviderSafe(provider voice.OpusFrameProvider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogVoice("Recovered from panic in SetOpusFrameProvider: %v", r)
		}
	}()
	c.conn.SetOpusFrameProvider(provider)
}

// ===========================
// Playback
// ===========================

// playback is the music.Resource for one song. It feeds transcoded frames to
// the voice connection and reports a single Completion.
type playback struct {
	t      *Transcoder
	frames chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	paused atomic.Bool
	wake   chan struct{}

	once     sync.Once
	done     chan music.Completion
	onFinish func()

	errMu sync.Mutex
	err   error
}

func newPlayback(t *Transcoder) *playback {
	ctx, cancel := context.WithCancel(context.Background())
	return &playback{
		t:      t,
		frames: make(chan []byte, 100),
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan music.Completion, 1),
	}
}

// run transcodes until the input ends or the playback is stopped, then
// queues the end-of-stream marker behind the last frame.
func (p *playback) run() {
	defer p.t.Close()
	if err := p.t.Transcode(p.ctx, p.push); err != nil && p.ctx.Err() == nil {
		sys.LogVoice(sys.MsgVoiceTranscodeFail, err)
		p.errMu.Lock()
		p.err = err
		p.errMu.Unlock()
	}
	p.push(nil)
}

func (p *playback) push(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *playback) ProvideOpusFrame() ([]byte, error) {
	if p.paused.Load() {
		select {
		case <-p.ctx.Done():
			return nil, io.EOF
		case <-p.wake:
		case <-time.After(100 * time.Millisecond):
		}
		return nil, nil // Silence
	}

	select {
	case f := <-p.frames:
		if f == nil {
			p.errMu.Lock()
			err := p.err
			p.errMu.Unlock()
			if err != nil {
				p.finish(music.Completion{Reason: music.Errored, Err: err})
			} else {
				p.finish(music.Completion{Reason: music.NaturalEnd})
			}
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		return nil, io.EOF
	case <-time.After(100 * time.Millisecond):
		return nil, nil // Silence
	}
}

// Close is called by the voice connection when it drops the provider.
func (p *playback) Close() {}

func (p *playback) finish(c music.Completion) {
	p.once.Do(func() {
		p.cancel()
		p.done <- c
		if p.onFinish != nil {
			go p.onFinish()
		}
	})
}

func (p *playback) SetGain(g float64) {
	p.t.SetGain(g)
}

func (p *playback) Pause() bool {
	return p.paused.CompareAndSwap(false, true)
}

func (p *playback) Resume() bool {
	if !p.paused.CompareAndSwap(true, false) {
		return false
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

func (p *playback) Stop(reason music.StopReason) {
	p.finish(music.Completion{Reason: reason})
}

func (p *playback) Done() <-chan music.Completion {
	return p.done
}

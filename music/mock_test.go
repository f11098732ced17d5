package music

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = snowflake.ID(1001)
	testText    = snowflake.ID(2001)
	testVoiceCh = snowflake.ID(3001)
)

type fakeResource struct {
	stream *Stream

	mu     sync.Mutex
	gain   float64
	paused bool
	once   sync.Once
	done   chan Completion
}

func newFakeResource(st *Stream, gain float64) *fakeResource {
	return &fakeResource{stream: st, gain: gain, done: make(chan Completion, 1)}
}

func (r *fakeResource) SetGain(g float64) {
	r.mu.Lock()
	r.gain = g
	r.mu.Unlock()
}

func (r *fakeResource) Gain() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gain
}

func (r *fakeResource) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return false
	}
	r.paused = true
	return true
}

func (r *fakeResource) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paused {
		return false
	}
	r.paused = false
	return true
}

func (r *fakeResource) Stop(reason StopReason) {
	r.finish(Completion{Reason: reason})
}

func (r *fakeResource) finish(c Completion) {
	r.once.Do(func() { r.done <- c })
}

func (r *fakeResource) Done() <-chan Completion {
	return r.done
}

type fakeVoice struct {
	plays  chan *fakeResource
	closed atomic.Bool
}

func (v *fakeVoice) ChannelID() snowflake.ID { return testVoiceCh }

func (v *fakeVoice) Play(_ context.Context, st *Stream, gain float64) (Resource, error) {
	if v.closed.Load() {
		return nil, errors.New("voice connection closed")
	}
	r := newFakeResource(st, gain)
	v.plays <- r
	return r, nil
}

func (v *fakeVoice) Close(context.Context) {
	v.closed.Store(true)
}

type fakeConnector struct {
	voice *fakeVoice
	err   error
	calls atomic.Int32
}

func (c *fakeConnector) Connect(context.Context, snowflake.ID, snowflake.ID) (Voice, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.voice, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	next       snowflake.ID
	searching  []string
	nowPlaying []string
	offsets    []time.Duration
	failures   []string
	posted     []snowflake.ID
	deleted    []snowflake.ID

	// run before the matching message is posted, when set
	holdSearching  func()
	holdNowPlaying func()
}

func (n *fakeNotifier) post() snowflake.ID {
	n.next++
	n.posted = append(n.posted, n.next)
	return n.next
}

func (n *fakeNotifier) Searching(_ context.Context, _, _ snowflake.ID, s *Song) (snowflake.ID, error) {
	if n.holdSearching != nil {
		n.holdSearching()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.searching = append(n.searching, s.Title)
	return n.post(), nil
}

func (n *fakeNotifier) NowPlaying(_ context.Context, _, _ snowflake.ID, s *Song, offset time.Duration) (snowflake.ID, error) {
	if n.holdNowPlaying != nil {
		n.holdNowPlaying()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nowPlaying = append(n.nowPlaying, s.Title)
	n.offsets = append(n.offsets, offset)
	return n.post(), nil
}

func (n *fakeNotifier) PlaybackFailed(_ context.Context, _, _ snowflake.ID, s *Song, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, s.Title)
}

func (n *fakeNotifier) Delete(_ context.Context, _, id snowflake.ID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, id)
	return nil
}

func (n *fakeNotifier) startOffsets() []time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.offsets)
}

func (n *fakeNotifier) snapshot() (searching, nowPlaying, failures []string, deleted []snowflake.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.searching), slices.Clone(n.nowPlaying), slices.Clone(n.failures), slices.Clone(n.deleted)
}

type fakeFinder struct {
	found map[string]*Song
}

func (f *fakeFinder) FindVideo(_ context.Context, query string) (*Song, error) {
	if s, ok := f.found[query]; ok {
		return s, nil
	}
	return nil, errors.New("no results")
}

func memOpener(_ context.Context, s *Song, opts OpenOptions) (*Stream, error) {
	return &Stream{Input: "mem://" + s.Title, Offset: opts.Offset}, nil
}

// gate blocks a test hook until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait() {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
}

func (g *gate) reached(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hook")
	}
}

func (g *gate) opener(ctx context.Context, s *Song, opts OpenOptions) (*Stream, error) {
	g.wait()
	return memOpener(ctx, s, opts)
}

func testSong(title string, d time.Duration) *Song {
	return &Song{
		Title:    title,
		Uploader: "tester",
		URL:      "https://www.youtube.com/watch?v=" + title,
		Duration: d,
		Provider: ProviderYouTube,
		AddedBy:  Requester{ID: 42, Name: "alice"},
		Opener:   memOpener,
	}
}

type harness struct {
	t      *testing.T
	c      *Controller
	voice  *fakeVoice
	conn   *fakeConnector
	notes  *fakeNotifier
	finder *fakeFinder
	played int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		voice:  &fakeVoice{plays: make(chan *fakeResource, 16)},
		notes:  &fakeNotifier{},
		finder: &fakeFinder{found: map[string]*Song{}},
	}
	h.conn = &fakeConnector{voice: h.voice}
	h.c = NewController(NewRegistry(), h.conn, h.notes, h.finder, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.c.Shutdown(ctx)
	})
	return h
}

func (h *harness) enqueue(songs ...*Song) *EnqueueResult {
	h.t.Helper()
	res, err := h.c.Enqueue(context.Background(), EnqueueRequest{
		GuildID:        testGuild,
		TextChannelID:  testText,
		VoiceChannelID: testVoiceCh,
		Songs:          songs,
	})
	require.NoError(h.t, err)
	return res
}

// next waits for the controller to start a song and announce it.
func (h *harness) next() *fakeResource {
	h.t.Helper()
	var r *fakeResource
	select {
	case r = <-h.voice.plays:
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for playback")
	}
	h.played++
	require.Eventually(h.t, func() bool {
		_, np, _, _ := h.notes.snapshot()
		return len(np) >= h.played
	}, 2*time.Second, 5*time.Millisecond)
	return r
}

// waitLoops waits for every playback loop to return.
func (h *harness) waitLoops() {
	h.t.Helper()
	done := make(chan struct{})
	go func() {
		h.c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for playback loop to exit")
	}
}

func (h *harness) waitDestroyed() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.c.Queue(testGuild) == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func titles(songs []*Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.Title
	}
	return out
}

package home

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	musicGuild = snowflake.ID(11)
	musicText  = snowflake.ID(22)
	musicVoice = snowflake.ID(33)
)

type stubResource struct {
	done chan music.Completion
	once atomic.Bool
}

func (r *stubResource) SetGain(float64) {}
func (r *stubResource) Pause() bool     { return true }
func (r *stubResource) Resume() bool    { return true }

func (r *stubResource) Stop(reason music.StopReason) {
	if r.once.CompareAndSwap(false, true) {
		r.done <- music.Completion{Reason: reason}
	}
}

func (r *stubResource) Done() <-chan music.Completion { return r.done }

type stubVoice struct{}

func (stubVoice) ChannelID() snowflake.ID { return musicVoice }

func (stubVoice) Play(context.Context, *music.Stream, float64) (music.Resource, error) {
	return &stubResource{done: make(chan music.Completion, 1)}, nil
}

func (stubVoice) Close(context.Context) {}

type stubConnector struct {
	calls atomic.Int32
}

func (c *stubConnector) Connect(context.Context, snowflake.ID, snowflake.ID) (music.Voice, error) {
	c.calls.Add(1)
	return stubVoice{}, nil
}

type stubNotifier struct {
	next       atomic.Int64
	nowPlaying atomic.Int32
}

func (n *stubNotifier) Searching(context.Context, snowflake.ID, snowflake.ID, *music.Song) (snowflake.ID, error) {
	return snowflake.ID(n.next.Add(1)), nil
}

func (n *stubNotifier) NowPlaying(context.Context, snowflake.ID, snowflake.ID, *music.Song, time.Duration) (snowflake.ID, error) {
	n.nowPlaying.Add(1)
	return snowflake.ID(n.next.Add(1)), nil
}

func (n *stubNotifier) PlaybackFailed(context.Context, snowflake.ID, snowflake.ID, *music.Song, error) {}

func (n *stubNotifier) Delete(context.Context, snowflake.ID, snowflake.ID) error { return nil }

// emptySearch finds nothing for any query.
type emptySearch struct{}

func (emptySearch) Kind() music.ProviderKind { return music.ProviderYouTube }
func (emptySearch) Match(*url.URL) bool      { return false }

func (emptySearch) Resolve(context.Context, *url.URL, music.SearchKind) ([]*music.Song, error) {
	return nil, nil
}

func (emptySearch) Search(context.Context, string, music.SearchKind) ([]*music.Song, error) {
	return nil, nil
}

type jukeboxEnv struct {
	j     *proc.Jukebox
	conn  *stubConnector
	notes *stubNotifier
}

func withJukebox(t *testing.T) *jukeboxEnv {
	t.Helper()
	env := &jukeboxEnv{conn: &stubConnector{}, notes: &stubNotifier{}}
	env.j = &proc.Jukebox{
		Controller: music.NewController(music.NewRegistry(), env.conn, env.notes, nil),
		Resolver:   music.NewResolver(emptySearch{}),
	}
	prev := currentJukebox
	currentJukebox = func() *proc.Jukebox { return env.j }
	t.Cleanup(func() {
		currentJukebox = prev
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		env.j.Controller.Shutdown(ctx)
	})
	return env
}

// start queues songs and waits for the first one to be announced.
func (env *jukeboxEnv) start(t *testing.T, titles ...string) *music.ServerQueue {
	t.Helper()
	songs := make([]*music.Song, len(titles))
	for i, title := range titles {
		songs[i] = &music.Song{
			Title:    title,
			URL:      "https://www.youtube.com/watch?v=" + title,
			Duration: time.Minute,
			Provider: music.ProviderYouTube,
			Opener: func(context.Context, *music.Song, music.OpenOptions) (*music.Stream, error) {
				return &music.Stream{Input: "mem://" + title}, nil
			},
		}
	}
	res, err := env.j.Controller.Enqueue(context.Background(), music.EnqueueRequest{
		GuildID:        musicGuild,
		TextChannelID:  musicText,
		VoiceChannelID: musicVoice,
		Songs:          songs,
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return env.notes.nowPlaying.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	return res.Queue
}

func musicContext(args sys.Args) *sys.Context {
	ch := musicVoice
	return &sys.Context{
		Context:   context.Background(),
		GuildID:   musicGuild,
		ChannelID: musicText,
		UserID:    44,
		UserName:  "alice",
		Args:      args,
		Server:    sys.ServerConfig{Lang: "en"},
		Voice:     sys.VoiceState{UserChannel: &ch, BotChannel: &ch},
	}
}

func failReply(t *testing.T, err error) string {
	t.Helper()
	var cerr *sys.CommandError
	require.True(t, errors.As(err, &cerr), "expected a command error, got %v", err)
	return cerr.Reply.Content
}

func queueTitles(q *music.ServerQueue) []string {
	var out []string
	for _, s := range q.State().Songs {
		out = append(out, s.Title)
	}
	return out
}

func TestRemoveCurrentSongSkipsIt(t *testing.T) {
	env := withJukebox(t)
	q := env.start(t, "A", "B")

	r, err := handleRemove(musicContext(sys.Args{"index": 1}))
	require.NoError(t, err)
	assert.Equal(t, sys.T("en", "music.skipped", sys.P{"count": 1}), r.Content)

	require.Eventually(t, func() bool {
		titles := queueTitles(q)
		return len(titles) == 1 && titles[0] == "B"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRemoveByIndex(t *testing.T) {
	env := withJukebox(t)
	q := env.start(t, "A", "B", "C")

	r, err := handleRemove(musicContext(sys.Args{"index": 2}))
	require.NoError(t, err)
	assert.Equal(t, sys.T("en", "music.removed", sys.P{"title": "B"}), r.Content)
	assert.Equal(t, []string{"A", "C"}, queueTitles(q))

	_, err = handleRemove(musicContext(sys.Args{"index": 9}))
	assert.Equal(t, sys.T("en", "music.index_range", sys.P{"index": 9}), failReply(t, err))
	assert.Equal(t, []string{"A", "C"}, queueTitles(q))
}

func TestRemoveWithoutQueue(t *testing.T) {
	withJukebox(t)
	_, err := handleRemove(musicContext(sys.Args{"index": 1}))
	assert.Equal(t, sys.T("en", "music.nothing_playing", nil), failReply(t, err))
}

func TestPlayNothingFoundLeavesQueueAlone(t *testing.T) {
	env := withJukebox(t)
	q := env.start(t, "A", "B")

	_, err := handlePlay(musicContext(sys.Args{"query": "no such song"}))
	assert.Equal(t, sys.T("en", "music.nothing_found", sys.P{"query": "no such song"}), failReply(t, err))
	assert.Equal(t, []string{"A", "B"}, queueTitles(q))
	assert.Equal(t, int32(1), env.conn.calls.Load())
}

func TestPlayNothingFoundCreatesNoQueue(t *testing.T) {
	env := withJukebox(t)

	_, err := handlePlay(musicContext(sys.Args{"query": "no such song"}))
	failReply(t, err)
	assert.Nil(t, env.j.Controller.Queue(musicGuild))
	assert.Zero(t, env.conn.calls.Load())
}

func TestMusicErrorLoading(t *testing.T) {
	ctx := musicContext(nil)
	assert.Equal(t, sys.T("en", "music.loading", nil), failReply(t, musicError(ctx, music.ErrLoading)))
	assert.Equal(t, sys.T("en", "music.nothing_playing", nil), failReply(t, musicError(ctx, music.ErrNothingPlaying)))
}

func TestCommandsWithoutJukebox(t *testing.T) {
	prev := currentJukebox
	currentJukebox = func() *proc.Jukebox { return nil }
	t.Cleanup(func() { currentJukebox = prev })

	_, err := handlePlay(musicContext(sys.Args{"query": "anything"}))
	assert.ErrorIs(t, err, errNotReady)
}

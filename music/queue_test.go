package music

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueOf(n int, rnd func(int) int) *ServerQueue {
	q := newServerQueue(testGuild, testText, 50, rnd)
	for i := range n {
		_, _ = q.Enqueue(testSong(fmt.Sprintf("s%d", i), time.Minute))
	}
	return q
}

func TestEnqueueKeepsInsertionOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	q := newServerQueue(testGuild, testText, 50, rng.IntN)

	var want []string
	for batch := range 20 {
		var songs []*Song
		for i := range rng.IntN(4) + 1 {
			title := fmt.Sprintf("b%d-%d", batch, i)
			songs = append(songs, testSong(title, time.Minute))
			want = append(want, title)
		}
		idx, err := q.Enqueue(songs...)
		require.NoError(t, err)
		assert.Equal(t, len(want)-len(songs), idx)
		assert.Equal(t, want, titles(q.State().Songs))
	}
}

func TestPositionStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	q := queueOf(6, rng.IntN)
	q.ToggleShuffle()

	reasons := []StopReason{NaturalEnd, SkipRequested, SeekRequested, Errored}
	for range 500 {
		switch rng.IntN(4) {
		case 0:
			_, _ = q.Enqueue(testSong("more", time.Minute))
		case 1:
			if n := q.Len(); n > 0 {
				_, _ = q.RemoveAt(rng.IntN(n))
			}
		case 2:
			if rng.IntN(5) == 0 {
				q.ToggleLoop()
			}
		case 3:
			if cur := q.Current(); cur != nil {
				q.complete(cur, reasons[rng.IntN(len(reasons))])
			}
		}

		st := q.State()
		if len(st.Songs) > 0 {
			require.GreaterOrEqual(t, st.Position, 0)
			require.Less(t, st.Position, len(st.Songs))
		}
	}
}

func TestRemoveAtAdjustsPosition(t *testing.T) {
	q := queueOf(5, func(int) int { return 3 })
	q.ToggleShuffle()
	q.ToggleLoop()
	q.complete(q.Current(), NaturalEnd)
	require.Equal(t, 3, q.State().Position)
	cur := q.Current()

	_, err := q.RemoveAt(3)
	assert.ErrorIs(t, err, ErrRemoveCurrent)

	removed, err := q.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, "s1", removed.Title)
	assert.Equal(t, 2, q.State().Position)
	assert.Same(t, cur, q.Current())

	_, err = q.RemoveAt(4)
	assert.ErrorIs(t, err, ErrIndexRange)
	_, err = q.RemoveAt(-1)
	assert.ErrorIs(t, err, ErrIndexRange)
}

func TestVolumeClamp(t *testing.T) {
	q := queueOf(1, nil)
	assert.Equal(t, 0, q.SetVolume(-5))
	assert.Equal(t, 100, q.SetVolume(150))
	assert.Equal(t, 42, q.SetVolume(42))
	assert.Equal(t, 42, q.Volume())

	r := newFakeResource(&Stream{}, 0.42)
	q.resource = r
	q.SetVolume(7)
	assert.InDelta(t, 0.07, r.Gain(), 1e-9)
}

func TestLoopNeverShrinksSingleSongQueue(t *testing.T) {
	q := queueOf(1, nil)
	q.ToggleLoop()
	for range 50 {
		q.complete(q.Current(), NaturalEnd)
		require.Equal(t, 1, q.Len())
	}
}

func TestSeekCompletionLeavesQueueAlone(t *testing.T) {
	q := queueOf(3, nil)
	cur := q.Current()
	cur.Seek = 20 * time.Second

	q.complete(cur, SeekRequested)
	st := q.State()
	assert.Equal(t, []string{"s0", "s1", "s2"}, titles(st.Songs))
	assert.Equal(t, 20*time.Second, cur.Seek)

	q.complete(cur, NaturalEnd)
	assert.Equal(t, []string{"s1", "s2"}, titles(q.State().Songs))
	assert.Zero(t, cur.Seek)
}

func TestShuffleIsUniform(t *testing.T) {
	const n, trials = 5, 10000
	q := queueOf(n, rand.New(rand.NewPCG(42, 24)).IntN)
	q.ToggleShuffle()
	q.ToggleLoop()

	counts := make([]int, n)
	for range trials {
		q.complete(q.Current(), NaturalEnd)
		counts[q.State().Position]++
	}

	expected := trials / n
	for i, c := range counts {
		assert.InDelta(t, expected, c, float64(expected)/5, "index %d", i)
	}
}

func TestShuffleNotAppliedAfterSeek(t *testing.T) {
	calls := 0
	q := queueOf(4, func(n int) int { calls++; return n - 1 })
	q.ToggleShuffle()

	q.complete(q.Current(), SeekRequested)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, q.State().Position)

	q.complete(q.Current(), NaturalEnd)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, q.State().Position)
}

func TestErroredKeepsFollowingSongAtPosition(t *testing.T) {
	q := queueOf(4, func(int) int { return 2 })
	q.ToggleShuffle()
	q.ToggleLoop()
	q.complete(q.Current(), NaturalEnd)
	require.Equal(t, "s2", q.Current().Title)

	q.complete(q.Current(), Errored)
	assert.Equal(t, "s3", q.Current().Title)

	q.complete(q.Current(), Errored)
	assert.Equal(t, "s0", q.Current().Title)
}

func TestCloseIsIdempotent(t *testing.T) {
	q := queueOf(2, nil)
	assert.True(t, q.addPending(9))

	_, _, ch, ids, ok := q.close()
	assert.True(t, ok)
	assert.Equal(t, testText, ch)
	assert.Len(t, ids, 1)

	_, _, _, _, ok = q.close()
	assert.False(t, ok)
	assert.Nil(t, q.Current())
	assert.Zero(t, q.Len())
	assert.False(t, q.addPending(10))
	_, ids = q.takePending()
	assert.Empty(t, ids)
}

func TestControlsWithoutResource(t *testing.T) {
	q := queueOf(2, nil)
	_, err := q.Skip(1)
	assert.ErrorIs(t, err, ErrLoading)
	assert.ErrorIs(t, q.Pause(), ErrLoading)
	assert.Equal(t, 2, q.Len())

	empty := queueOf(0, nil)
	_, err = empty.Skip(1)
	assert.ErrorIs(t, err, ErrNothingPlaying)
	_, err = empty.SeekTo(time.Second)
	assert.ErrorIs(t, err, ErrNothingPlaying)

	q.close()
	assert.ErrorIs(t, q.Resume(), ErrNothingPlaying)
}

func TestNowPlayingReportsStartOffset(t *testing.T) {
	q := queueOf(1, nil)
	q.songs[0].Seek = 42 * time.Second
	s, offset, ok := q.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "s0", s.Title)
	assert.Equal(t, 42*time.Second, offset)

	q.close()
	_, _, ok = q.NowPlaying()
	assert.False(t, ok)
}

package proc

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceVerdict(t *testing.T) {
	current := snowflake.ID(10)
	other := snowflake.ID(11)

	assert.Equal(t, verdictDisconnected, voiceVerdict(true, current, nil, 0))
	assert.Equal(t, verdictDisconnected, voiceVerdict(true, current, &other, 3))
	assert.Equal(t, verdictStay, voiceVerdict(true, current, &current, 0))
	assert.Equal(t, verdictEmpty, voiceVerdict(false, current, nil, 0))
	assert.Equal(t, verdictStay, voiceVerdict(false, current, &other, 2))
}

func testPlayback() *playback {
	return newPlayback(&Transcoder{})
}

func completion(t *testing.T, p *playback) music.Completion {
	t.Helper()
	select {
	case c := <-p.Done():
		return c
	case <-time.After(time.Second):
		t.Fatal("no completion")
	}
	return music.Completion{}
}

func TestPlaybackNaturalEnd(t *testing.T) {
	p := testPlayback()
	p.push([]byte{1})
	p.push([]byte{2})
	p.push(nil)

	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, f)
	f, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, f)

	_, err = p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, music.Completion{Reason: music.NaturalEnd}, completion(t, p))
}

func TestPlaybackTranscodeError(t *testing.T) {
	p := testPlayback()
	boom := errors.New("decode failed")
	p.err = boom
	p.push(nil)

	_, err := p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
	c := completion(t, p)
	assert.Equal(t, music.Errored, c.Reason)
	assert.ErrorIs(t, c.Err, boom)
}

func TestPlaybackStopCompletesOnce(t *testing.T) {
	p := testPlayback()
	p.Stop(music.SeekRequested)
	p.Stop(music.StopRequested)
	p.push(nil)

	assert.Equal(t, music.SeekRequested, completion(t, p).Reason)
	select {
	case c := <-p.Done():
		t.Fatalf("second completion %v", c)
	default:
	}

	_, err := p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPlaybackPauseResume(t *testing.T) {
	p := testPlayback()
	p.push([]byte{9})

	assert.True(t, p.Pause())
	assert.False(t, p.Pause())
	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Nil(t, f, "paused playback yields silence")

	assert.True(t, p.Resume())
	assert.False(t, p.Resume())
	f, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, f)
}

func TestPlaybackGain(t *testing.T) {
	p := testPlayback()
	p.SetGain(0.42)
	assert.InDelta(t, 0.42, p.t.Gain(), 1e-9)
}

package music

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

var (
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrQueueClosed    = errors.New("queue is closed")
	ErrRemoveCurrent  = errors.New("cannot remove the current song")
	ErrIndexRange     = errors.New("index out of range")
	ErrNotSeekable    = errors.New("song cannot be seeked")
	ErrAlreadyPaused  = errors.New("already paused")
	ErrNotPaused      = errors.New("not paused")
	ErrLoading        = errors.New("song is still loading")
)

const (
	MinVolume = 0
	MaxVolume = 100
)

func ClampVolume(v int) int {
	return max(MinVolume, min(v, MaxVolume))
}

// ServerQueue is the playback state of one guild. songs holds both the
// current song and everything after it; finished songs are removed.
type ServerQueue struct {
	GuildID snowflake.ID

	mu            sync.Mutex
	textChannelID snowflake.ID
	songs         []*Song
	position      int
	volume        int
	playing       bool
	loop          bool
	shuffle       bool
	voice         Voice
	resource      Resource
	toDelete      []snowflake.ID
	destroyed     bool
	rand          func(n int) int
}

func newServerQueue(guildID, textChannelID snowflake.ID, volume int, rnd func(int) int) *ServerQueue {
	return &ServerQueue{
		GuildID:       guildID,
		textChannelID: textChannelID,
		volume:        ClampVolume(volume),
		rand:          rnd,
	}
}

// QueueState is a point in time copy used for display.
type QueueState struct {
	Songs    []*Song
	Position int
	Volume   int
	Playing  bool
	Loop     bool
	Shuffle  bool
}

func (q *ServerQueue) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueState{
		Songs:    slices.Clone(q.songs),
		Position: q.position,
		Volume:   q.volume,
		Playing:  q.playing,
		Loop:     q.loop,
		Shuffle:  q.shuffle,
	}
}

// Current returns the song at position, or nil when the queue is empty.
func (q *ServerQueue) Current() *Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed || len(q.songs) == 0 {
		return nil
	}
	return q.songs[q.position]
}

// NowPlaying returns the current song and the offset it was started from.
func (q *ServerQueue) NowPlaying() (*Song, time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed || len(q.songs) == 0 {
		return nil, 0, false
	}
	s := q.songs[q.position]
	return s, s.Seek, true
}

func (q *ServerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.songs)
}

func (q *ServerQueue) Volume() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.volume
}

func (q *ServerQueue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

func (q *ServerQueue) TextChannelID() snowflake.ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.textChannelID
}

func (q *ServerQueue) SetTextChannelID(id snowflake.ID) {
	q.mu.Lock()
	q.textChannelID = id
	q.mu.Unlock()
}

// VoiceChannelID is zero until the connection is attached.
func (q *ServerQueue) VoiceChannelID() snowflake.ID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.voice == nil {
		return 0
	}
	return q.voice.ChannelID()
}

func (q *ServerQueue) Destroyed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.destroyed
}

// Enqueue appends songs and returns the index of the first one.
func (q *ServerQueue) Enqueue(songs ...*Song) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return 0, ErrQueueClosed
	}
	idx := len(q.songs)
	q.songs = append(q.songs, songs...)
	return idx, nil
}

// RemoveAt removes the song at index i. The song at position is never
// removed here; callers skip it instead.
func (q *ServerQueue) RemoveAt(i int) (*Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return nil, ErrQueueClosed
	}
	if i < 0 || i >= len(q.songs) {
		return nil, ErrIndexRange
	}
	if i == q.position {
		return nil, ErrRemoveCurrent
	}
	s := q.songs[i]
	q.songs = slices.Delete(q.songs, i, i+1)
	if i < q.position {
		q.position--
	}
	return s, nil
}

// SetVolume stores the clamped value and applies it to the live resource.
func (q *ServerQueue) SetVolume(v int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.volume = ClampVolume(v)
	if q.resource != nil {
		q.resource.SetGain(float64(q.volume) / 100)
	}
	return q.volume
}

func (q *ServerQueue) ToggleLoop() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loop = !q.loop
	return q.loop
}

func (q *ServerQueue) ToggleShuffle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuffle = !q.shuffle
	return q.shuffle
}

// SeekTo restarts the current song at d, clamped to its duration.
func (q *ServerQueue) SeekTo(d time.Duration) (time.Duration, error) {
	q.mu.Lock()
	if err := q.idle(); err != nil {
		q.mu.Unlock()
		return 0, err
	}
	s := q.songs[q.position]
	if s.Live() {
		q.mu.Unlock()
		return 0, ErrNotSeekable
	}
	d = max(0, min(d, s.Duration))
	s.Seek = d
	res := q.resource
	q.mu.Unlock()

	res.Stop(SeekRequested)
	return d, nil
}

// Skip ends the current song and drops the n-1 songs after it. It returns
// how many songs are skipped in total.
func (q *ServerQueue) Skip(n int) (int, error) {
	q.mu.Lock()
	if err := q.idle(); err != nil {
		q.mu.Unlock()
		return 0, err
	}
	n = max(1, min(n, len(q.songs)))
	end := min(q.position+n, len(q.songs))
	if end > q.position+1 {
		q.songs = slices.Delete(q.songs, q.position+1, end)
	}
	skipped := end - q.position
	res := q.resource
	q.mu.Unlock()

	res.Stop(SkipRequested)
	return skipped, nil
}

func (q *ServerQueue) Pause() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.idle(); err != nil {
		return err
	}
	if !q.resource.Pause() {
		return ErrAlreadyPaused
	}
	q.playing = false
	return nil
}

func (q *ServerQueue) Resume() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.idle(); err != nil {
		return err
	}
	if !q.resource.Resume() {
		return ErrNotPaused
	}
	q.playing = true
	return nil
}

// idle reports why the queue has no live resource, or nil when it has one.
// A current song without a resource is still being resolved or opened.
func (q *ServerQueue) idle() error {
	switch {
	case q.destroyed || len(q.songs) == 0:
		return ErrNothingPlaying
	case q.resource == nil:
		return ErrLoading
	}
	return nil
}

func (q *ServerQueue) attach(v Voice) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false
	}
	q.voice = v
	return true
}

func (q *ServerQueue) current() (*Song, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed || len(q.songs) == 0 {
		return nil, false
	}
	return q.songs[q.position], true
}

// addPending records a message for deletion at teardown. It reports false
// when the queue is already destroyed and the caller must delete it.
func (q *ServerQueue) addPending(id snowflake.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false
	}
	q.toDelete = append(q.toDelete, id)
	return true
}

func (q *ServerQueue) takePending() (snowflake.ID, []snowflake.ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.toDelete
	q.toDelete = nil
	return q.textChannelID, ids
}

// replace swaps old for s in the same slot. It fails when old is no longer
// in the queue.
func (q *ServerQueue) replace(old, s *Song) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false
	}
	i := q.indexOf(old)
	if i < 0 {
		return false
	}
	q.songs[i] = s
	return true
}

// drop removes s and keeps position pointing at the song that followed it.
func (q *ServerQueue) drop(s *Song) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.remove(s)
}

// begin marks the queue as playing and returns what the controller needs to
// start s.
func (q *ServerQueue) begin(s *Song) (Voice, time.Duration, float64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed || q.voice == nil || q.indexOf(s) < 0 {
		return nil, 0, 0, false
	}
	q.playing = true
	return q.voice, s.Seek, float64(q.volume) / 100, true
}

func (q *ServerQueue) setResource(res Resource) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false
	}
	q.resource = res
	// volume may have changed while the stream was opening
	res.SetGain(float64(q.volume) / 100)
	return true
}

// complete applies the transition for a finished song.
func (q *ServerQueue) complete(s *Song, reason StopReason) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resource = nil
	q.playing = false
	if q.destroyed {
		return
	}
	switch reason {
	case SeekRequested, StopRequested:
		return
	case NaturalEnd:
		s.Seek = 0
		if !q.loop {
			q.remove(s)
		}
	case Errored:
		s.Seek = 0
		q.remove(s)
		return
	case SkipRequested:
		s.Seek = 0
		q.remove(s)
	}
	q.position = 0
	if q.shuffle && len(q.songs) > 0 {
		q.position = q.rand(len(q.songs))
	}
}

// close marks the queue destroyed and hands back everything that needs
// releasing. Only the first call returns ok.
func (q *ServerQueue) close() (Voice, Resource, snowflake.ID, []snowflake.ID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return nil, nil, 0, nil, false
	}
	q.destroyed = true
	v, res, ids := q.voice, q.resource, q.toDelete
	q.songs = nil
	q.position = 0
	q.playing = false
	q.voice = nil
	q.resource = nil
	q.toDelete = nil
	return v, res, q.textChannelID, ids, true
}

func (q *ServerQueue) indexOf(s *Song) int {
	if q.position < len(q.songs) && q.songs[q.position] == s {
		return q.position
	}
	return slices.Index(q.songs, s)
}

func (q *ServerQueue) remove(s *Song) {
	i := q.indexOf(s)
	if i < 0 {
		return
	}
	q.songs = slices.Delete(q.songs, i, i+1)
	if i < q.position {
		q.position--
	}
	if q.position >= len(q.songs) {
		q.position = 0
	}
}

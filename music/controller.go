package music

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

var (
	ErrNothingFound = errors.New("nothing found")
	ErrNoMatch      = errors.New("no playable match")
)

// Controller owns every guild's playback loop. Each queue gets one goroutine
// that runs until the queue is destroyed.
type Controller struct {
	queues    *Registry
	connector Connector
	notifier  Notifier
	finder    Finder

	defaultVolume func(guildID snowflake.ID) int
	rand          func(n int) int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Controller)

// WithDefaultVolume sets the volume a new queue starts at.
func WithDefaultVolume(f func(guildID snowflake.ID) int) Option {
	return func(c *Controller) { c.defaultVolume = f }
}

// WithRand replaces the shuffle source.
func WithRand(f func(n int) int) Option {
	return func(c *Controller) { c.rand = f }
}

func NewController(queues *Registry, connector Connector, notifier Notifier, finder Finder, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		queues:        queues,
		connector:     connector,
		notifier:      notifier,
		finder:        finder,
		defaultVolume: func(snowflake.ID) int { return 50 },
		rand:          rand.IntN,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Queues() *Registry {
	return c.queues
}

func (c *Controller) Queue(guildID snowflake.ID) *ServerQueue {
	return c.queues.Get(guildID)
}

type EnqueueRequest struct {
	GuildID        snowflake.ID
	TextChannelID  snowflake.ID
	VoiceChannelID snowflake.ID
	Songs          []*Song
}

type EnqueueResult struct {
	Queue   *ServerQueue
	Created bool
	// Index of the first added song.
	Index int
}

// Enqueue adds songs to the guild's queue. When the queue is new it connects
// to the voice channel and starts the playback loop.
func (c *Controller) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	if len(req.Songs) == 0 {
		return nil, ErrNothingFound
	}

	q, created := c.queues.loadOrStore(req.GuildID, func() *ServerQueue {
		return newServerQueue(req.GuildID, req.TextChannelID, c.defaultVolume(req.GuildID), c.rand)
	})
	idx, err := q.Enqueue(req.Songs...)
	if err != nil {
		return nil, err
	}
	if !created {
		return &EnqueueResult{Queue: q, Index: idx}, nil
	}

	v, err := c.connector.Connect(ctx, req.GuildID, req.VoiceChannelID)
	if err != nil {
		c.destroy(ctx, q)
		return nil, fmt.Errorf("connect voice: %w", err)
	}
	if !q.attach(v) {
		v.Close(ctx)
		return nil, ErrQueueClosed
	}

	sys.LogMusic("Queue created for guild %s", req.GuildID)
	c.wg.Add(1)
	go c.run(q)
	return &EnqueueResult{Queue: q, Created: true, Index: idx}, nil
}

// Stop tears down the guild's queue. It reports whether a queue existed.
func (c *Controller) Stop(ctx context.Context, guildID snowflake.ID) bool {
	q := c.queues.Get(guildID)
	if q == nil {
		return false
	}
	c.destroy(ctx, q)
	return true
}

// Shutdown destroys every queue and waits for the loops to exit.
func (c *Controller) Shutdown(ctx context.Context) {
	for _, q := range c.queues.All() {
		c.destroy(ctx, q)
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		sys.LogWarn("Playback loops did not exit before shutdown deadline")
	}
	c.cancel()
}

func (c *Controller) destroy(ctx context.Context, q *ServerQueue) {
	v, res, channelID, pending, ok := q.close()
	if !ok {
		return
	}
	c.queues.delete(q.GuildID, q)
	if res != nil {
		res.Stop(StopRequested)
	}
	c.deleteMessages(ctx, channelID, pending)
	if v != nil {
		v.Close(ctx)
	}
	sys.LogMusic("Queue destroyed for guild %s", q.GuildID)
}

func (c *Controller) run(q *ServerQueue) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			sys.LogError("Playback loop for guild %s panicked: %v", q.GuildID, r)
			c.destroy(c.ctx, q)
		}
	}()
	for c.step(q) {
	}
}

// step plays the song at position once and applies the resulting
// transition. It returns false when the loop must exit.
func (c *Controller) step(q *ServerQueue) bool {
	ctx := c.ctx

	channelID, pending := q.takePending()
	c.deleteMessages(ctx, channelID, pending)

	song, ok := q.current()
	if !ok {
		c.destroy(ctx, q)
		return false
	}

	if song.NeedsResolution {
		resolved, err := c.resolve(ctx, q, song)
		if err != nil {
			sys.LogMusic("Dropping %q in guild %s: %v", song.Title, q.GuildID, err)
			q.drop(song)
			return true
		}
		if !q.replace(song, resolved) {
			return !q.Destroyed()
		}
		song = resolved
	}

	v, offset, gain, ok := q.begin(song)
	if !ok {
		return !q.Destroyed()
	}

	res, err := c.open(ctx, v, song, offset, gain)
	if err != nil {
		if q.Destroyed() {
			// stop or leave closed the voice while the stream was opening
			return false
		}
		c.failed(ctx, q, song, err)
		q.complete(song, Errored)
		return true
	}
	if !q.setResource(res) {
		res.Stop(StopRequested)
		return false
	}

	channelID = q.TextChannelID()
	if id, err := c.notifier.NowPlaying(ctx, q.GuildID, channelID, song, offset); err == nil {
		c.track(ctx, q, channelID, id)
	} else {
		sys.LogDebug("Failed to post now playing for guild %s: %v", q.GuildID, err)
	}

	var done Completion
	select {
	case done = <-res.Done():
	case <-ctx.Done():
		res.Stop(StopRequested)
		return false
	}

	switch done.Reason {
	case StopRequested:
		// stopped from outside the controller, e.g. voice torn down
		c.destroy(ctx, q)
		return false
	case Errored:
		c.failed(ctx, q, song, done.Err)
	}
	q.complete(song, done.Reason)
	return true
}

func (c *Controller) open(ctx context.Context, v Voice, song *Song, offset time.Duration, gain float64) (Resource, error) {
	st, err := song.Open(ctx, OpenOptions{Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	res, err := v.Play(ctx, st, gain)
	if err != nil {
		return nil, fmt.Errorf("play: %w", err)
	}
	return res, nil
}

// resolve finds a YouTube video for a song that cannot stream by itself.
func (c *Controller) resolve(ctx context.Context, q *ServerQueue, song *Song) (*Song, error) {
	if c.finder == nil {
		return nil, ErrNoMatch
	}
	channelID := q.TextChannelID()
	if id, err := c.notifier.Searching(ctx, q.GuildID, channelID, song); err == nil {
		c.track(ctx, q, channelID, id)
	}

	found, err := c.finder.FindVideo(ctx, song.SearchQuery())
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoMatch
	}

	resolved := *found
	resolved.AddedBy = song.AddedBy
	resolved.NeedsResolution = false
	if resolved.Thumbnail == "" {
		resolved.Thumbnail = song.Thumbnail
	}
	return &resolved, nil
}

// track queues a posted message for deletion, or deletes it now when the
// queue was destroyed while it was being posted.
func (c *Controller) track(ctx context.Context, q *ServerQueue, channelID, id snowflake.ID) {
	if !q.addPending(id) {
		c.deleteMessages(ctx, channelID, []snowflake.ID{id})
	}
}

func (c *Controller) failed(ctx context.Context, q *ServerQueue, song *Song, err error) {
	sys.LogError("Playback of %q failed in guild %s: %v", song.Title, q.GuildID, err)
	c.notifier.PlaybackFailed(ctx, q.GuildID, q.TextChannelID(), song, err)
}

func (c *Controller) deleteMessages(ctx context.Context, channelID snowflake.ID, ids []snowflake.ID) {
	for _, id := range ids {
		if err := c.notifier.Delete(ctx, channelID, id); err != nil {
			sys.LogDebug("Failed to delete message %s: %v", id, err)
		}
	}
}

package home

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/music"
	"github.com/leeineian/jukebox/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPrefix(t *testing.T) {
	for p, want := range map[string]bool{
		"!":       true,
		"jb!":     true,
		"ééééé":   true,
		"":        false,
		"toolong": false,
		"a b":     false,
		"\t":      false,
	} {
		assert.Equal(t, want, validPrefix(p), "prefix %q", p)
	}
}

func TestResolveCommandName(t *testing.T) {
	cmds := []*sys.Command{
		{Name: "play", Aliases: []string{"p"}},
		{Name: "deny", Admin: true},
	}

	name, ok := resolveCommandName(cmds, " P ")
	assert.True(t, ok)
	assert.Equal(t, "play", name)

	name, ok = resolveCommandName(cmds, "*")
	assert.True(t, ok)
	assert.Equal(t, sys.DenyAll, name)

	_, ok = resolveCommandName(cmds, "deny")
	assert.False(t, ok)
	_, ok = resolveCommandName(cmds, "nope")
	assert.False(t, ok)
}

func TestParseChannel(t *testing.T) {
	id, ok := parseChannel("<#123456789012345678>")
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(123456789012345678), id)

	id, ok = parseChannel("42")
	assert.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	_, ok = parseChannel("#general")
	assert.False(t, ok)
	_, ok = parseChannel("0")
	assert.False(t, ok)
}

func TestSplitPurgeable(t *testing.T) {
	now := time.Now()
	fresh1 := snowflake.New(now.Add(-time.Hour))
	fresh2 := snowflake.New(now.Add(-2 * time.Hour))
	old := snowflake.New(now.Add(-20 * 24 * time.Hour))

	bulk, single := splitPurgeable([]snowflake.ID{fresh1, fresh2, old}, now)
	assert.Equal(t, []snowflake.ID{fresh1, fresh2}, bulk)
	assert.Equal(t, []snowflake.ID{old}, single)

	// Bulk deletes need at least two messages.
	bulk, single = splitPurgeable([]snowflake.ID{fresh1}, now)
	assert.Empty(t, bulk)
	assert.Equal(t, []snowflake.ID{fresh1}, single)
}

func TestQueueReplyEmpty(t *testing.T) {
	r := queueReply("en", music.QueueState{}, 1)
	assert.Equal(t, "The queue is empty.", r.Content)
}

func TestQueueReplyPages(t *testing.T) {
	st := music.QueueState{Position: 11, Volume: 80, Loop: true}
	for i := range 25 {
		st.Songs = append(st.Songs, &music.Song{
			Title:    fmt.Sprintf("Song %d", i+1),
			Duration: time.Duration(i+1) * time.Minute,
		})
	}

	r := queueReply("en", st, 2)
	require.NotNil(t, r)
	assert.Equal(t, "Queue · Page 2/3", r.Title)
	lines := strings.Split(r.Content, "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "`11.` Song 11 · `11:00`", lines[0])
	assert.Equal(t, "▶ Song 12 · `12:00`", lines[1])
	assert.Equal(t, "25 songs · Loop: on · Shuffle: off · Volume: 80%", r.Footer)

	// Past the end clamps to the last page.
	last := queueReply("en", st, 9)
	assert.Equal(t, "Queue · Page 3/3", last.Title)
	assert.Len(t, strings.Split(last.Content, "\n"), 5)
}

func TestQueueReplyLive(t *testing.T) {
	st := music.QueueState{Songs: []*music.Song{{Title: "Radio", URL: "https://example.com/live"}}}
	r := queueReply("en", st, 1)
	assert.Equal(t, "▶ [Radio](https://example.com/live) · `LIVE`", r.Content)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "1d 2h 3m", formatUptime(26*time.Hour+3*time.Minute+59*time.Second))
	assert.Equal(t, "0d 0h 0m", formatUptime(0))
}

func TestLanguageChoices(t *testing.T) {
	choices := languageChoices()
	require.Len(t, choices, len(sys.Languages))
	assert.Equal(t, sys.Choice{Name: "English", Value: "en"}, choices[0])
	assert.Equal(t, sys.Choice{Name: "Français", Value: "fr"}, choices[1])
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range sys.Commands() {
		assert.False(t, names[c.Name], "duplicate command %s", c.Name)
		names[c.Name] = true
	}
	for _, want := range []string{
		"play", "skip", "seek", "pause", "resume", "stop", "leave", "loop", "shuffle",
		"remove", "volume", "queue", "nowplaying", "ping", "stats", "purge", "prefix",
		"language", "defaultvolume", "telemetry", "deny", "allow", "reload", "restart",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

package proc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPresenceCandidatesIdle(t *testing.T) {
	got := presenceCandidates(nil, 0, 90*time.Minute+20*time.Second)
	assert.Equal(t, []string{"/play", "for 1:30:00"}, got)
}

func TestPresenceCandidatesGuilds(t *testing.T) {
	got := presenceCandidates(nil, 12, time.Minute)
	assert.Contains(t, got, "/play in 12 servers")
}

func TestPickPresenceAvoidsRepeat(t *testing.T) {
	first := func(int) int { return 0 }
	assert.Equal(t, "b", pickPresence([]string{"a", "b"}, "a", first))
	assert.Equal(t, "a", pickPresence([]string{"a"}, "a", first))
	assert.Equal(t, "a", pickPresence([]string{"a", "b"}, "", first))
}

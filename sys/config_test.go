package sys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv(envLookup(map[string]string{
		"DISCORD_TOKEN": "token",
		"DATABASE_PATH": "test.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Token)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "!", cfg.DefaultPrefix)
	assert.Equal(t, 50, cfg.DefaultVolume)
	assert.Equal(t, "en", cfg.DefaultLang)
	assert.Equal(t, TelemetryBasic, cfg.DefaultTelemetry)
	assert.Equal(t, 100, cfg.PlaylistLimit)
	assert.False(t, cfg.SpotifyEnabled())
	assert.Equal(t, "test.db?_journal_mode=WAL&_timeout=5000&_foreign_keys=on", cfg.DatabaseDSN())
}

func TestConfigFromEnvValues(t *testing.T) {
	cfg, err := ConfigFromEnv(envLookup(map[string]string{
		"DISCORD_TOKEN":         "token",
		"DATABASE_PATH":         "test.db",
		"GUILD_ID":              "123456789012345678",
		"OWNER_IDS":             " 1, 2 ,,3 ",
		"DEFAULT_LANG":          "fr-CA",
		"DEFAULT_VOLUME":        "80",
		"SPOTIFY_CLIENT_ID":     "id",
		"SPOTIFY_CLIENT_SECRET": "secret",
		"COMMAND_RATE":          "0.5",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"1", "2", "3"}, cfg.OwnerIDs)
	assert.True(t, cfg.IsOwner("2"))
	assert.False(t, cfg.IsOwner("4"))
	assert.Equal(t, "fr", cfg.DefaultLang)
	assert.Equal(t, 80, cfg.DefaultVolume)
	assert.True(t, cfg.SpotifyEnabled())
	assert.InDelta(t, 0.5, cfg.CommandRate, 1e-9)
}

func TestConfigFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{}},
		{"bad number", map[string]string{"DISCORD_TOKEN": "t", "DEFAULT_VOLUME": "loud"}},
		{"bad bool", map[string]string{"DISCORD_TOKEN": "t", "DEBUG": "maybe"}},
		{"volume range", map[string]string{"DISCORD_TOKEN": "t", "DEFAULT_VOLUME": "150"}},
		{"telemetry range", map[string]string{"DISCORD_TOKEN": "t", "DEFAULT_TELEMETRY": "3"}},
		{"prefix whitespace", map[string]string{"DISCORD_TOKEN": "t", "DEFAULT_PREFIX": "a b"}},
		{"short guild", map[string]string{"DISCORD_TOKEN": "t", "GUILD_ID": "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.env["DATABASE_PATH"] = "test.db"
			_, err := ConfigFromEnv(envLookup(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestParseEnvCollectsEveryError(t *testing.T) {
	_, err := ParseEnv(envLookup(map[string]string{
		"DEFAULT_VOLUME": "x",
		"DEBUG":          "y",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
	assert.Contains(t, err.Error(), "DEFAULT_VOLUME")
	assert.Contains(t, err.Error(), "DEBUG")
}

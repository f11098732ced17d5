package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
)

// --- Environment Table ---

type EnvKind int

const (
	EnvString EnvKind = iota
	EnvNumber
	EnvBool
	EnvArray
)

func (k EnvKind) String() string {
	return [...]string{"string", "number", "boolean", "array"}[k]
}

type EnvKey struct {
	Name     string
	Kind     EnvKind
	Default  string
	Required bool
}

// EnvKeys lists every variable the bot reads.
var EnvKeys = []EnvKey{
	{Name: "DISCORD_TOKEN", Kind: EnvString, Required: true},
	{Name: "GUILD_ID", Kind: EnvString},
	{Name: "OWNER_IDS", Kind: EnvArray},
	{Name: "DATABASE_PATH", Kind: EnvString},
	{Name: "DEBUG", Kind: EnvBool, Default: "false"},
	{Name: "SILENT", Kind: EnvBool, Default: "false"},
	{Name: "LOG_FILE", Kind: EnvString},
	{Name: "LOG_MAX_SIZE_MB", Kind: EnvNumber, Default: "10"},
	{Name: "LOG_MAX_BACKUPS", Kind: EnvNumber, Default: "3"},
	{Name: "DEFAULT_PREFIX", Kind: EnvString, Default: "!"},
	{Name: "DEFAULT_VOLUME", Kind: EnvNumber, Default: "50"},
	{Name: "DEFAULT_LANG", Kind: EnvString, Default: "en"},
	{Name: "DEFAULT_TELEMETRY", Kind: EnvNumber, Default: "1"},
	{Name: "SPOTIFY_CLIENT_ID", Kind: EnvString},
	{Name: "SPOTIFY_CLIENT_SECRET", Kind: EnvString},
	{Name: "PLAYLIST_LIMIT", Kind: EnvNumber, Default: "100"},
	{Name: "COMMAND_RATE", Kind: EnvNumber, Default: "1"},
	{Name: "COMMAND_BURST", Kind: EnvNumber, Default: "5"},
}

// EnvValues holds parsed values keyed by variable name.
type EnvValues map[string]any

func (v EnvValues) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v EnvValues) Number(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

func (v EnvValues) Int(name string) int {
	return int(v.Number(name))
}

func (v EnvValues) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

func (v EnvValues) Array(name string) []string {
	a, _ := v[name].([]string)
	return a
}

// ParseEnv reads every key in EnvKeys through lookup.
func ParseEnv(lookup func(string) (string, bool)) (EnvValues, error) {
	values := make(EnvValues, len(EnvKeys))
	var errs []error
	for _, k := range EnvKeys {
		raw, ok := lookup(k.Name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			if k.Required {
				errs = append(errs, fmt.Errorf(MsgConfigMissingKey, k.Name))
				continue
			}
			raw = k.Default
		}
		v, err := parseEnvValue(k.Kind, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf(MsgConfigInvalidKey, k.Name, k.Kind, err))
			continue
		}
		values[k.Name] = v
	}
	return values, errors.Join(errs...)
}

func parseEnvValue(kind EnvKind, raw string) (any, error) {
	switch kind {
	case EnvNumber:
		if raw == "" {
			return float64(0), nil
		}
		return strconv.ParseFloat(raw, 64)
	case EnvBool:
		if raw == "" {
			return false, nil
		}
		return strconv.ParseBool(raw)
	case EnvArray:
		var out []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return raw, nil
}

// --- Configuration ---

type Config struct {
	Token        string
	GuildID      string
	OwnerIDs     []string
	DatabasePath string

	Debug         bool
	Silent        bool
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	DefaultPrefix    string
	DefaultVolume    int
	DefaultLang      string
	DefaultTelemetry int

	SpotifyClientID     string
	SpotifyClientSecret string
	PlaylistLimit       int

	CommandRate  float64
	CommandBurst int
}

var currentConfig atomic.Pointer[Config]

// GetConfig returns the active configuration, or nil before LoadConfig.
func GetConfig() *Config {
	return currentConfig.Load()
}

// LoadConfig reads .env and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return applyEnv()
}

// ReloadConfig lets .env override values already in the environment.
func ReloadConfig() (*Config, error) {
	_ = godotenv.Overload()
	cfg, err := applyEnv()
	if err == nil {
		LogConfig(MsgConfigReloaded)
	}
	return cfg, err
}

func applyEnv() (*Config, error) {
	cfg, err := ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	currentConfig.Store(cfg)
	return cfg, nil
}

// ConfigFromEnv builds and validates a Config from lookup.
func ConfigFromEnv(lookup func(string) (string, bool)) (*Config, error) {
	v, err := ParseEnv(lookup)
	if err != nil {
		return nil, err
	}

	dbPath := v.String("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	cfg := &Config{
		Token:               v.String("DISCORD_TOKEN"),
		GuildID:             v.String("GUILD_ID"),
		OwnerIDs:            v.Array("OWNER_IDS"),
		DatabasePath:        dbPath,
		Debug:               v.Bool("DEBUG"),
		Silent:              v.Bool("SILENT"),
		LogFile:             v.String("LOG_FILE"),
		LogMaxSizeMB:        v.Int("LOG_MAX_SIZE_MB"),
		LogMaxBackups:       v.Int("LOG_MAX_BACKUPS"),
		DefaultPrefix:       v.String("DEFAULT_PREFIX"),
		DefaultVolume:       v.Int("DEFAULT_VOLUME"),
		DefaultLang:         NormalizeLang(v.String("DEFAULT_LANG")),
		DefaultTelemetry:    v.Int("DEFAULT_TELEMETRY"),
		SpotifyClientID:     v.String("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: v.String("SPOTIFY_CLIENT_SECRET"),
		PlaylistLimit:       v.Int("PLAYLIST_LIMIT"),
		CommandRate:         v.Number("COMMAND_RATE"),
		CommandBurst:        v.Int("COMMAND_BURST"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return errors.New("invalid GUILD_ID: must be a valid Snowflake")
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 100 {
		return fmt.Errorf("DEFAULT_VOLUME must be between 0 and 100, got %d", c.DefaultVolume)
	}
	if c.DefaultTelemetry < TelemetryOff || c.DefaultTelemetry > TelemetryFull {
		return fmt.Errorf("DEFAULT_TELEMETRY must be between %d and %d, got %d", TelemetryOff, TelemetryFull, c.DefaultTelemetry)
	}
	if c.DefaultPrefix == "" || strings.ContainsAny(c.DefaultPrefix, " \t\n") {
		return errors.New("DEFAULT_PREFIX must be non-empty and contain no whitespace")
	}
	if c.PlaylistLimit < 1 {
		return errors.New("PLAYLIST_LIMIT must be positive")
	}
	if c.CommandRate <= 0 || c.CommandBurst < 1 {
		return errors.New("COMMAND_RATE and COMMAND_BURST must be positive")
	}
	return nil
}

// IsProduction is true when no development guild is configured.
func (c *Config) IsProduction() bool {
	return c.GuildID == ""
}

func (c *Config) IsOwner(userID string) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SpotifyEnabled reports whether Spotify credentials are present.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func (c *Config) LogOptions() LogOptions {
	return LogOptions{
		Silent:     c.Silent,
		Debug:      c.Debug,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
	}
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "jukebox"
	if err == nil {
		projectName = strings.TrimSuffix(filepath.Base(exePath), ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}

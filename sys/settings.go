package sys

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
)

// Telemetry levels control how much of an unhandled error leaves the process.
const (
	TelemetryOff = iota
	TelemetryBasic
	TelemetryFull
)

// DenyAll in a deny list blocks every command in the channel.
const DenyAll = "*"

// ServerConfig is one guild's persisted settings.
type ServerConfig struct {
	ID             int64
	GuildID        snowflake.ID
	Prefix         string
	Volume         int
	Lang           string
	TelemetryLevel int
	// Denies maps a channel to the command names blocked in it.
	Denies map[snowflake.ID][]string
}

func (c ServerConfig) clone() ServerConfig {
	denies := make(map[snowflake.ID][]string, len(c.Denies))
	for ch, cmds := range c.Denies {
		denies[ch] = slices.Clone(cmds)
	}
	c.Denies = denies
	return c
}

// DefaultServerConfig is what a guild without a row sees.
func DefaultServerConfig(cfg *Config) ServerConfig {
	return ServerConfig{
		Prefix:         cfg.DefaultPrefix,
		Volume:         cfg.DefaultVolume,
		Lang:           cfg.DefaultLang,
		TelemetryLevel: cfg.DefaultTelemetry,
		Denies:         map[snowflake.ID][]string{},
	}
}

// ServerConfigStore caches every guild row in memory. Rows are created on
// first write.
type ServerConfigStore struct {
	db       *sql.DB
	defaults func() ServerConfig

	mu    sync.RWMutex
	cache map[snowflake.ID]ServerConfig
}

var ServerConfigs *ServerConfigStore

// InitServerConfigs loads the global store from DB.
func InitServerConfigs(ctx context.Context) error {
	s := NewServerConfigStore(DB, func() ServerConfig {
		return DefaultServerConfig(GetConfig())
	})
	if err := s.Load(ctx); err != nil {
		return err
	}
	ServerConfigs = s
	return nil
}

func NewServerConfigStore(db *sql.DB, defaults func() ServerConfig) *ServerConfigStore {
	return &ServerConfigStore{
		db:       db,
		defaults: defaults,
		cache:    make(map[snowflake.ID]ServerConfig),
	}
}

// Load replaces the cache with the database contents.
func (s *ServerConfigStore) Load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, guild, prefix, volume, lang, telemetry_level FROM server_configs")
	if err != nil {
		return err
	}
	defer rows.Close()

	cache := make(map[snowflake.ID]ServerConfig)
	byRow := make(map[int64]snowflake.ID)
	for rows.Next() {
		var c ServerConfig
		var guild string
		if err := rows.Scan(&c.ID, &guild, &c.Prefix, &c.Volume, &c.Lang, &c.TelemetryLevel); err != nil {
			return err
		}
		id, err := snowflake.Parse(guild)
		if err != nil {
			LogWarn("Skipping server config with invalid guild %q", guild)
			continue
		}
		c.GuildID = id
		c.Denies = map[snowflake.ID][]string{}
		cache[id] = c
		byRow[c.ID] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	denies, err := s.db.QueryContext(ctx, "SELECT server_config_id, channel, command FROM channel_denies")
	if err != nil {
		return err
	}
	defer denies.Close()
	for denies.Next() {
		var rowID int64
		var channel, command string
		if err := denies.Scan(&rowID, &channel, &command); err != nil {
			return err
		}
		guild, ok := byRow[rowID]
		if !ok {
			continue
		}
		ch, err := snowflake.Parse(channel)
		if err != nil {
			continue
		}
		c := cache[guild]
		c.Denies[ch] = append(c.Denies[ch], command)
		cache[guild] = c
	}
	if err := denies.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	LogDatabase(MsgSettingsLoaded, len(cache))
	return nil
}

// Get returns the guild's settings or the defaults when it has no row.
func (s *ServerConfigStore) Get(guildID snowflake.ID) ServerConfig {
	s.mu.RLock()
	c, ok := s.cache[guildID]
	s.mu.RUnlock()
	if !ok {
		c = s.defaults()
		c.GuildID = guildID
	}
	return c.clone()
}

// Update applies fn to the guild's settings and persists the result.
func (s *ServerConfigStore) Update(ctx context.Context, guildID snowflake.ID, fn func(*ServerConfig)) (ServerConfig, error) {
	c := s.Get(guildID)
	fn(&c)

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO server_configs (guild, prefix, volume, lang, telemetry_level) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild) DO UPDATE SET
			prefix = excluded.prefix,
			volume = excluded.volume,
			lang = excluded.lang,
			telemetry_level = excluded.telemetry_level
		RETURNING id
	`, guildID.String(), c.Prefix, c.Volume, c.Lang, c.TelemetryLevel).Scan(&id)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("save server config: %w", err)
	}
	c.ID = id

	s.mu.Lock()
	s.cache[guildID] = c.clone()
	s.mu.Unlock()
	return c, nil
}

// Deny blocks command in channel. It reports false when it already was.
func (s *ServerConfigStore) Deny(ctx context.Context, guildID, channelID snowflake.ID, command string) (bool, error) {
	if lo.Contains(s.Get(guildID).Denies[channelID], command) {
		return false, nil
	}
	c, err := s.ensure(ctx, guildID)
	if err != nil {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO channel_denies (server_config_id, channel, command) VALUES (?, ?, ?)",
		c.ID, channelID.String(), command,
	); err != nil {
		return false, err
	}

	s.mu.Lock()
	c = s.cache[guildID].clone()
	c.Denies[channelID] = append(slices.Clone(c.Denies[channelID]), command)
	s.cache[guildID] = c
	s.mu.Unlock()
	return true, nil
}

// Allow lifts a deny. It reports false when nothing was denied.
func (s *ServerConfigStore) Allow(ctx context.Context, guildID, channelID snowflake.ID, command string) (bool, error) {
	c := s.Get(guildID)
	if c.ID == 0 || !lo.Contains(c.Denies[channelID], command) {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM channel_denies WHERE server_config_id = ? AND channel = ? AND command = ?",
		c.ID, channelID.String(), command,
	); err != nil {
		return false, err
	}

	s.mu.Lock()
	c = s.cache[guildID].clone()
	if rest := lo.Without(c.Denies[channelID], command); len(rest) > 0 {
		c.Denies[channelID] = rest
	} else {
		delete(c.Denies, channelID)
	}
	s.cache[guildID] = c
	s.mu.Unlock()
	return true, nil
}

// IsDenied reports whether command may not run in channel.
func (s *ServerConfigStore) IsDenied(guildID, channelID snowflake.ID, command string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	denied := s.cache[guildID].Denies[channelID]
	return lo.Contains(denied, command) || lo.Contains(denied, DenyAll)
}

func (s *ServerConfigStore) ensure(ctx context.Context, guildID snowflake.ID) (ServerConfig, error) {
	if c := s.Get(guildID); c.ID != 0 {
		return c, nil
	}
	return s.Update(ctx, guildID, func(*ServerConfig) {})
}
